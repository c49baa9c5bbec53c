package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"assistant-chat/internal/domain"
	"assistant-chat/internal/domain/model"
	"assistant-chat/internal/domain/ports/adapter"
	"assistant-chat/internal/infra/i18n"
	"assistant-chat/internal/usecase"
)

// REPL is the line-oriented front end of the conversation.
type REPL struct {
	conv       usecase.ConversationUseCase
	auth       adapter.Authenticator
	creds      adapter.CredentialSource
	health     adapter.HealthChecker
	maxHistory int
	name       string
	tr         *i18n.Translator

	lines LineReader
	out   io.Writer
	log   *zerolog.Logger
}

func NewREPL(
	conv usecase.ConversationUseCase,
	auth adapter.Authenticator,
	creds adapter.CredentialSource,
	health adapter.HealthChecker,
	maxHistory int,
	assistantName string,
	tr *i18n.Translator,
	lines LineReader,
	out io.Writer,
	logger *zerolog.Logger,
) *REPL {
	l := logger.With().Str("component", "console").Logger()
	if assistantName == "" {
		assistantName = "Assistant"
	}
	if tr == nil {
		tr = i18n.Default()
	}
	return &REPL{
		conv:       conv,
		auth:       auth,
		creds:      creds,
		health:     health,
		maxHistory: maxHistory,
		name:       assistantName,
		tr:         tr,
		lines:      lines,
		out:        out,
		log:        &l,
	}
}

var errQuit = errors.New("quit")

// Run reads lines until EOF, Ctrl-C, /quit or ctx cancellation. The input is
// closed on return.
func (r *REPL) Run(ctx context.Context) error {
	defer r.lines.Close()

	r.say("ready", r.name)
	for ctx.Err() == nil {
		line, err := r.read(ctx, r.lines.Prompt, "> ")
		if err != nil {
			if endOfInput(err) {
				return nil
			}
			return err
		}
		if err := r.Handle(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}
	return nil
}

// read runs one blocking prompt and gives up when ctx ends.
func (r *REPL) read(ctx context.Context, prompt func(string) (string, error), text string) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := prompt(text)
		ch <- result{line: line, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}

func endOfInput(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, liner.ErrPromptAborted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (r *REPL) say(key string, args ...interface{}) {
	fmt.Fprintln(r.out, r.tr.T(key, args...))
}

// Handle executes one input line.
func (r *REPL) Handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		r.send(ctx, line)
		return nil
	}

	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		r.say("help")
	case "/login":
		r.login(ctx, fields[1:])
	case "/google":
		r.googleLogin(ctx, fields[1:])
	case "/logout":
		r.auth.Logout(ctx)
		r.say("logout_ok")
	case "/whoami":
		if _, ok := r.creds.Token(); !ok {
			r.say("whoami_none")
			break
		}
		a := r.creds.CurrentUser()
		fmt.Fprintf(r.out, "%s <%s>\n", a.Name, a.Email)
	case "/clear":
		r.conv.ClearHistory(ctx)
		r.say("cleared")
	case "/state":
		b, err := json.MarshalIndent(r.conv.State(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, string(b))
	case "/metrics":
		m := r.conv.State().Metrics
		r.say("metrics_line",
			m.TotalRequests, m.SuccessfulRequests, m.FailedRequests, m.AverageResponseTimeMs)
	case "/health":
		r.checkHealth(ctx)
	default:
		r.say("unknown_command", fields[0])
	}
	return nil
}

func (r *REPL) login(ctx context.Context, args []string) {
	if len(args) != 1 {
		r.say("login_usage")
		return
	}
	password, err := r.read(ctx, r.lines.PasswordPrompt, r.tr.T("password_prompt"))
	if err != nil {
		if !endOfInput(err) {
			r.log.Warn().Err(err).Msg("password prompt")
		}
		r.say("login_cancelled")
		return
	}
	u, err := r.auth.Login(ctx, args[0], password)
	r.reportLogin(u, err)
}

func (r *REPL) googleLogin(ctx context.Context, args []string) {
	if len(args) != 1 {
		r.say("google_usage")
		return
	}
	u, err := r.auth.LoginWithGoogle(ctx, args[0])
	if errors.Is(err, domain.ErrInvalidArgument) {
		r.say("google_invalid")
		return
	}
	r.reportLogin(u, err)
}

func (r *REPL) reportLogin(u *model.User, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotRegistered):
		r.say("login_forbidden")
	case errors.Is(err, domain.ErrInvalidLogin):
		r.say("login_invalid")
	case err != nil:
		r.log.Warn().Err(err).Msg("login failed")
		r.say("login_failed", err)
	default:
		r.say("login_ok", u.Name)
	}
}

// send enforces the per-conversation question cap before handing the line
// to the store, then prints the reply or the error.
func (r *REPL) send(ctx context.Context, content string) {
	st := r.conv.State()
	if st.QuestionLimitReached(r.maxHistory) {
		r.say("limit_reached", r.maxHistory)
		return
	}
	if st.IsSending {
		r.say("still_sending")
		return
	}

	before := len(st.Messages)
	r.conv.SendMessage(ctx, content)
	st = r.conv.State()

	if st.LastError != nil {
		RenderError(r.out, r.tr, st.LastError)
		return
	}
	if len(st.Messages) > before {
		last := st.Messages[len(st.Messages)-1]
		if last.Role == model.RoleAssistant {
			r.say("reply_header", r.name, st.LastRequestDurationMs)
			fmt.Fprintln(r.out, last.Content)
		}
	}
}

func (r *REPL) checkHealth(ctx context.Context) {
	if r.health == nil {
		r.say("health_unavailable")
		return
	}
	hs, err := r.health.CheckHealth(ctx)
	if err != nil {
		r.say("health_failed", err)
		return
	}
	fmt.Fprintf(r.out, "%s (%dms) %s\n", hs.Status, hs.LatencyMs, hs.Endpoint)
	for name, svc := range hs.Services {
		fmt.Fprintf(r.out, "  %s: %s %dms\n", name, svc.Status, svc.LatencyMs)
	}
}
