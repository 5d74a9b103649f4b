package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jaylee-dev/media-toolbox/internal/llm"
	"github.com/jaylee-dev/media-toolbox/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatCall struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
}

type fakeChat struct {
	calls   []chatCall
	respond func(call int, userPrompt string) (string, error)
}

func (f *fakeChat) Complete(_ context.Context, _ llm.Endpoint, systemPrompt, userPrompt string, temperature float64) (string, error) {
	f.calls = append(f.calls, chatCall{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  temperature,
	})
	return f.respond(len(f.calls), userPrompt)
}

func testTemplate() template.Template {
	return template.Template{
		SystemPrompt:       "Translate into {target_lang} from {src_lang}.",
		UserPromptTemplate: "Translate: {text}",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipeline_Run_EmptyText(t *testing.T) {
	chat := &fakeChat{respond: func(int, string) (string, error) {
		return "should not be called", nil
	}}
	p := NewPipeline(chat, 100, discardLogger())

	out, err := p.Run(context.Background(), Request{
		Template:   testTemplate(),
		Text:       "",
		TargetLang: "Korean",
	}, Callbacks{})

	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, chat.calls)
}

func TestPipeline_Run_MissingPlaceholderFailsBeforeAnyCall(t *testing.T) {
	chat := &fakeChat{respond: func(int, string) (string, error) {
		return "should not be called", nil
	}}
	p := NewPipeline(chat, 100, discardLogger())

	_, err := p.Run(context.Background(), Request{
		Template: template.Template{
			SystemPrompt:       "translator",
			UserPromptTemplate: "no placeholder here",
		},
		Text:       "hello",
		TargetLang: "Korean",
	}, Callbacks{})

	require.ErrorIs(t, err, template.ErrMissingPlaceholder)
	assert.Empty(t, chat.calls)
}

func TestPipeline_Run_SingleChunk(t *testing.T) {
	chat := &fakeChat{respond: func(_ int, _ string) (string, error) {
		return "translated", nil
	}}
	p := NewPipeline(chat, 100, discardLogger())

	var progress []int
	out, err := p.Run(context.Background(), Request{
		Template:   testTemplate(),
		Text:       "hello world",
		TargetLang: "Korean",
	}, Callbacks{
		Progress: func(percent int) { progress = append(progress, percent) },
	})

	require.NoError(t, err)
	assert.Equal(t, "translated", out)
	require.Len(t, chat.calls, 1)
	assert.Equal(t, "Translate: hello world", chat.calls[0].UserPrompt)
	assert.Equal(t, []int{100}, progress)
}

func TestPipeline_Run_SrcLangDefaultsToAuto(t *testing.T) {
	chat := &fakeChat{respond: func(int, string) (string, error) {
		return "ok", nil
	}}
	p := NewPipeline(chat, 100, discardLogger())

	_, err := p.Run(context.Background(), Request{
		Template:   testTemplate(),
		Text:       "hello",
		TargetLang: "Korean",
	}, Callbacks{})

	require.NoError(t, err)
	require.Len(t, chat.calls, 1)
	assert.Equal(t, "Translate into Korean from auto.", chat.calls[0].SystemPrompt)
}

func TestPipeline_Run_Temperature(t *testing.T) {
	chat := &fakeChat{respond: func(int, string) (string, error) {
		return "ok", nil
	}}
	p := NewPipeline(chat, 100, discardLogger())

	_, err := p.Run(context.Background(), Request{
		Template:   testTemplate(),
		Text:       "hello",
		TargetLang: "Korean",
	}, Callbacks{})

	require.NoError(t, err)
	require.Len(t, chat.calls, 1)
	assert.InDelta(t, 0.3, chat.calls[0].Temperature, 1e-9)
}

func TestPipeline_Run_MultipleChunksInOrder(t *testing.T) {
	chat := &fakeChat{respond: func(call int, _ string) (string, error) {
		return fmt.Sprintf("part%d", call), nil
	}}
	p := NewPipeline(chat, 12, discardLogger())

	var progress []int
	out, err := p.Run(context.Background(), Request{
		Template:   testTemplate(),
		Text:       "one two three four five six",
		TargetLang: "Korean",
	}, Callbacks{
		Progress: func(percent int) { progress = append(progress, percent) },
	})

	require.NoError(t, err)

	total := len(chat.calls)
	require.Greater(t, total, 1)

	// Chunks are translated strictly in order and joined with a blank line
	expected := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		expected = append(expected, fmt.Sprintf("part%d", i))
	}
	assert.Equal(t, strings.Join(expected, "\n\n"), out)

	// Progress is monotonic and ends at 100
	require.Len(t, progress, total)
	for i := 1; i < len(progress); i++ {
		assert.Greater(t, progress[i], progress[i-1])
	}
	assert.Equal(t, 100, progress[len(progress)-1])
}

func TestPipeline_Run_CancelledBetweenChunks(t *testing.T) {
	chat := &fakeChat{respond: func(int, string) (string, error) {
		return "ok", nil
	}}
	p := NewPipeline(chat, 12, discardLogger())

	out, err := p.Run(context.Background(), Request{
		Template:   testTemplate(),
		Text:       "one two three four five six",
		TargetLang: "Korean",
	}, Callbacks{
		// Cancel after the first chunk completed
		Cancelled: func() bool { return len(chat.calls) >= 1 },
	})

	require.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, out)
	assert.Len(t, chat.calls, 1)
}

func TestPipeline_Run_ChunkFailureAbortsWholeTranslation(t *testing.T) {
	boom := errors.New("endpoint down")
	chat := &fakeChat{respond: func(call int, _ string) (string, error) {
		if call == 2 {
			return "", boom
		}
		return "ok", nil
	}}
	p := NewPipeline(chat, 12, discardLogger())

	out, err := p.Run(context.Background(), Request{
		Template:   testTemplate(),
		Text:       "one two three four five six",
		TargetLang: "Korean",
	}, Callbacks{})

	require.Error(t, err)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "chunk 2/")
	assert.Empty(t, out)
	// No chunk after the failing one is attempted
	assert.Len(t, chat.calls, 2)
}
