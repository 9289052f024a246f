package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"cvcoach/internal/ai"
	"cvcoach/internal/common"
	"cvcoach/internal/errors"
	"cvcoach/internal/phase"
	"cvcoach/internal/session"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive coaching session in the terminal",
	Long: `Start an interactive coaching session. The coach speaks Portuguese and
guides you through diagnosis, briefing, market reality check and the
rewrite of your experiences.

Commands inside the session:
  /cv <arquivo>   envia o currículo (.txt, .md ou .pdf)
  /ir <FASE>      vai para uma fase (ex.: DIAGNOSIS, EXPORTS)
  /tentar         repete a última etapa que falhou
  /telemetria     mostra as chamadas ao modelo
  /reiniciar      recomeça do zero
  /sair           encerra`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

var chatFlags struct {
	cvFile string
}

func init() {
	chatCmd.Flags().StringVar(&chatFlags.cvFile, "cv", "", "CV file to submit right away")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	a, err := newApp(cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	return newTerminal(cmd.InOrStdin(), cmd.OutOrStdout(), a.router, logger).run(cmd.Context(), chatFlags.cvFile)
}

// terminal drives one session from a line-oriented reader
type terminal struct {
	lines  <-chan string
	out    io.Writer
	router *phase.Router
	files  *common.FileProcessor
	output *common.OutputHandler
	logger *errors.Logger

	id    string
	phase session.Phase
	shown int
}

func newTerminal(in io.Reader, out io.Writer, router *phase.Router, logger *errors.Logger) *terminal {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	return &terminal{
		lines:  lines,
		out:    out,
		router: router,
		files:  common.NewFileProcessor(logger),
		output: common.NewOutputHandlerTo(out, logger),
		logger: logger,
	}
}

func (t *terminal) run(ctx context.Context, cvFile string) error {
	out, err := t.router.Create(ctx)
	if err != nil {
		return err
	}
	t.id = out.Session.ID
	t.show(out, nil)

	if cvFile != "" {
		t.submitCVFile(ctx, cvFile)
	}

	for {
		if t.phase == session.PhaseBriefing {
			if quit := t.briefingForm(ctx); quit {
				return nil
			}
			continue
		}

		line, ok := t.readLine(ctx, "> ")
		if !ok {
			return nil
		}
		if quit := t.dispatch(ctx, line); quit {
			return nil
		}
	}
}

// dispatch runs one input line and reports whether the session should end
func (t *terminal) dispatch(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "/sair":
		fmt.Fprintln(t.out, "Até logo!")
		return true
	case "/cv":
		if arg == "" {
			fmt.Fprintln(t.out, "Uso: /cv <arquivo>")
			return false
		}
		t.submitCVFile(ctx, arg)
	case "/ir":
		t.show(t.router.Navigate(ctx, t.id, arg))
	case "/tentar":
		t.show(t.router.Tick(ctx, t.id))
	case "/reiniciar":
		t.show(t.router.Reset(ctx, t.id))
	case "/telemetria":
		t.printTelemetry()
	default:
		t.show(t.router.SubmitChat(ctx, t.id, line))
	}
	return false
}

func (t *terminal) submitCVFile(ctx context.Context, path string) {
	text, err := t.files.ReadDocument(path)
	if err != nil {
		t.show(nil, err)
		return
	}
	fmt.Fprintln(t.out, "Lendo seu currículo...")
	t.show(t.router.SubmitCV(ctx, t.id, text))
}

// briefingForm asks the briefing fields one by one and submits them. A
// slash command typed into any field aborts the form.
func (t *terminal) briefingForm(ctx context.Context) bool {
	var b phase.Briefing
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Objetivo (enter para Recolocação no Mercado): ", &b.Objective},
		{"Cargo alvo: ", &b.TargetRole},
		{"Pretensão salarial mensal (R$): ", &b.SalaryExpectation},
		{"Cidade/estado: ", &b.Location},
	}
	for _, f := range fields {
		line, ok := t.readLine(ctx, f.prompt)
		if !ok {
			return true
		}
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "/") {
			return t.dispatch(ctx, line)
		}
		*f.dst = line
	}

	remote, ok := t.readLine(ctx, "Aceita remoto? (s/n): ")
	if !ok {
		return true
	}
	b.Remote = strings.HasPrefix(strings.ToLower(strings.TrimSpace(remote)), "s")

	t.show(t.router.SubmitBriefing(ctx, t.id, b))
	return false
}

func (t *terminal) readLine(ctx context.Context, prompt string) (string, bool) {
	fmt.Fprint(t.out, prompt)
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-t.lines:
		return line, ok
	}
}

// show prints the assistant messages added since the last call plus any
// redirect or error
func (t *terminal) show(out *phase.Outcome, err error) {
	if out != nil {
		msgs := out.Session.Messages
		if len(msgs) < t.shown {
			t.shown = 0
		}
		for _, m := range msgs[t.shown:] {
			if m.Role == ai.RoleAssistant {
				fmt.Fprintf(t.out, "\n%s\n\n", m.Content)
			}
		}
		t.shown = len(msgs)
		t.phase = out.Session.Phase

		if out.Redirect != nil {
			fmt.Fprintf(t.out, "(%s)\n", out.Redirect.Message)
		}
		if out.Session.LastError != "" {
			fmt.Fprintf(t.out, "Erro: %s Digite /tentar para repetir.\n", out.Session.LastError)
		}
	}

	if err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) && appErr.Type == errors.ErrorTypeValidation {
			fmt.Fprintf(t.out, "%s\n", appErr.Message)
			return
		}
		if out == nil {
			fmt.Fprintf(t.out, "Erro: %v\n", err)
		}
		t.logger.LogError(err, "Chat port failed", "session_id", t.id)
	}
}

func (t *terminal) printTelemetry() {
	snap, err := t.router.Telemetry(t.id)
	if err != nil {
		t.show(nil, err)
		return
	}
	text, err := t.output.Render(snap, "text")
	if err != nil {
		t.show(nil, err)
		return
	}
	fmt.Fprintln(t.out, text)
}
