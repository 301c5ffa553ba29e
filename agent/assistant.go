package agent

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/logging"
	"github.com/hupe1980/carebook/model"
)

// Texts used by the empty-reply recovery.
const (
	CorrectivePrompt = "Respond with a real output."
	FallbackReply    = "I'm sorry, I could not produce a response. Please rephrase your request."
)

// AssistantOptions configures an Assistant.
type AssistantOptions struct {
	// MaxEmptyRetries bounds the re-prompts after a reply without text or calls.
	MaxEmptyRetries int
	// MaxAdapterRetries bounds the retries after a provider failure.
	MaxAdapterRetries int
	// RetryBackoff is multiplied by the attempt number between adapter retries.
	RetryBackoff time.Duration
	Stream       bool
	Logger       logging.Logger
	Clock        func() time.Time
	// OnModelCall is invoked after every model call.
	OnModelCall func(agent string, elapsed time.Duration, err error)
}

// Assistant drives one Descriptor against a model.
type Assistant struct {
	descriptor *Descriptor
	llm        model.Model
	opts       AssistantOptions
}

// NewAssistant creates an Assistant for d backed by llm.
func NewAssistant(d *Descriptor, llm model.Model, optFns ...func(o *AssistantOptions)) *Assistant {
	opts := AssistantOptions{
		MaxEmptyRetries:   3,
		MaxAdapterRetries: 2,
		RetryBackoff:      500 * time.Millisecond,
		Logger:            logging.NoOpLogger{},
		Clock:             time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Assistant{descriptor: d, llm: llm, opts: opts}
}

// Name returns the node name of the assistant.
func (a *Assistant) Name() string { return a.descriptor.Name }

// Descriptor returns the descriptor the assistant runs.
func (a *Assistant) Descriptor() *Descriptor { return a.descriptor }

// Invoke produces the next assistant message for state. The state is not
// modified; the caller appends the returned message.
//
// A reply with neither text nor function calls is retried with a corrective
// user message on a working copy of the history; once MaxEmptyRetries is
// spent the fixed FallbackReply is returned. Provider failures are retried
// MaxAdapterRetries times. Context errors are returned immediately.
func (a *Assistant) Invoke(ctx context.Context, state *core.ConversationState) (core.Message, error) {
	instructions, err := a.descriptor.Instruction.Resolve(InstructionContext{
		Now:         a.opts.Clock(),
		ThreadID:    state.ThreadID,
		DialogState: state.Current(),
	})
	if err != nil {
		return core.Message{}, err
	}

	req := model.Request{
		Instructions: instructions,
		Contents:     state.Contents(),
		Tools:        a.descriptor.ToolDefinitions(),
		Stream:       a.opts.Stream,
	}

	for empties := 0; ; empties++ {
		resp, err := a.generate(ctx, req)
		if err != nil {
			return core.Message{}, err
		}

		msg := core.NewMessage(a.Name(), resp.Content)
		if msg.IsActionable() {
			return msg, nil
		}

		if empties >= a.opts.MaxEmptyRetries {
			a.opts.Logger.Warn("assistant.empty.exhausted", "agent", a.Name(), "retries", empties)
			return core.NewAssistantMessage(a.Name(), FallbackReply), nil
		}

		a.opts.Logger.Debug("assistant.empty.retry", "agent", a.Name(), "attempt", empties+1)

		req.Contents = append(req.Contents, core.Content{
			Role:  core.RoleUser,
			Parts: []core.Part{core.TextPart{Text: CorrectivePrompt}},
		})
	}
}

func (a *Assistant) generate(ctx context.Context, req model.Request) (model.Response, error) {
	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err := model.Collect(ctx, a.llm, req)
		elapsed := time.Since(start)

		if a.opts.OnModelCall != nil {
			a.opts.OnModelCall(a.Name(), elapsed, err)
		}

		if err == nil {
			tokens := 0
			if resp.Usage != nil {
				tokens = resp.Usage.TotalTokens
			}
			a.opts.Logger.Debug("model.call.completed", "agent", a.Name(), "model", a.llm.Info().Name, "token_count", tokens, "duration_ms", elapsed.Milliseconds())
			return resp, nil
		}

		if IsContextError(err) {
			a.opts.Logger.Warn("model.call.canceled", "agent", a.Name(), "attempt", attempt+1, "error", err)
			return model.Response{}, err
		}

		if !core.IsAdapterFailure(err) || attempt >= a.opts.MaxAdapterRetries {
			a.opts.Logger.Error("model.call.failed", "agent", a.Name(), "attempt", attempt+1, "error", err)
			return model.Response{}, err
		}

		a.opts.Logger.Warn("model.call.retry", "agent", a.Name(), "attempt", attempt+1, "error", err)

		if err := sleep(ctx, a.opts.RetryBackoff*time.Duration(attempt+1)); err != nil {
			return model.Response{}, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsContextError reports whether err stems from cancellation or a deadline.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
