package usecase

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"assistant-chat/internal/config"
	"assistant-chat/internal/domain"
	"assistant-chat/internal/domain/model"
)

// AttachmentPolicy validates attachment metadata against the upload limits
// before a message is handed to the store.
type AttachmentPolicy struct {
	maxSize     int64
	fileTypes   []string
	audioTypes  []string
	maxDuration float64
}

func NewAttachmentPolicy(cfg config.UploadsConfig) *AttachmentPolicy {
	return &AttachmentPolicy{
		maxSize:     cfg.MaxFileSize,
		fileTypes:   normaliseExts(cfg.AllowedFileTypes),
		audioTypes:  normaliseExts(cfg.AllowedAudioTypes),
		maxDuration: cfg.MaxAudioDuration,
	}
}

func (p *AttachmentPolicy) Check(atts ...model.Attachment) error {
	for _, a := range atts {
		if err := p.check(a); err != nil {
			return fmt.Errorf("attachment %q: %w", a.Name, err)
		}
	}
	return nil
}

func (p *AttachmentPolicy) check(a model.Attachment) error {
	if p.maxSize > 0 && a.Size > p.maxSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrInvalidArgument, a.Size, p.maxSize)
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(a.Name), "."))
	switch a.Type {
	case model.AttachmentFile:
		if len(p.fileTypes) > 0 && !slices.Contains(p.fileTypes, ext) {
			return fmt.Errorf("%w: file type %q not allowed", domain.ErrInvalidArgument, ext)
		}
	case model.AttachmentAudio:
		if len(p.audioTypes) > 0 && !slices.Contains(p.audioTypes, ext) {
			return fmt.Errorf("%w: audio format %q not allowed", domain.ErrInvalidArgument, ext)
		}
		if p.maxDuration > 0 && a.DurationSeconds > p.maxDuration {
			return fmt.Errorf("%w: %.0fs exceeds %.0fs", domain.ErrInvalidArgument, a.DurationSeconds, p.maxDuration)
		}
	default:
		return fmt.Errorf("%w: unknown attachment type %q", domain.ErrInvalidArgument, a.Type)
	}
	return nil
}

func normaliseExts(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
