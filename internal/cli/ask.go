package cli

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophchat/internal/llm"
	"github.com/dmitrijs2005/gophchat/internal/reveal"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type textStreamer interface {
	StreamText(ctx context.Context, modelID string, msgs []llm.Message) iter.Seq2[string, error]
}

var newStreamer = func(cfg *config.Config) textStreamer {
	return llm.NewRegistry(llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey), llm.ModelNames{
		Chat:      cfg.ChatModel,
		Reasoning: cfg.ReasoningModel,
		Title:     cfg.TitleModel,
		Artifact:  cfg.ArtifactModel,
	})
}

var revealOptions []reveal.Option

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printer writes only the newly displayed suffix. Shrinking text is not
// rewound on a plain stream.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	printed string
}

func (p *printer) render(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !strings.HasPrefix(text, p.printed) {
		return
	}
	io.WriteString(p.w, text[len(p.printed):])
	p.printed = text
}

func newAskCmd(cfg configFunc) *cobra.Command {
	var (
		model  string
		buffer bool
	)

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send a prompt to a model and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p := &printer{w: out}
			opts := append([]reveal.Option{
				reveal.WithAnimation(isTerminal(out)),
				reveal.OnRender(p.render),
			}, revealOptions...)
			r := reveal.New("", true, opts...)
			defer r.Close()

			msgs := []llm.Message{{Role: "user", Content: strings.Join(args, " ")}}

			var sb strings.Builder
			for chunk, err := range newStreamer(c).StreamText(cmd.Context(), model, msgs) {
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				sb.WriteString(chunk)
				if !buffer {
					r.Update(sb.String(), true)
				}
			}

			// In buffer mode nothing was shown yet, so this plays the whole
			// reply as one reveal.
			r.Update(sb.String(), false)
			if err := r.Wait(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", llm.ChatModelID, "Model id: chat-model, chat-model-reasoning, title-model or artifact-model")
	cmd.Flags().BoolVar(&buffer, "buffer", false, "Wait for the full reply and reveal it at once")
	return cmd
}
