package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"triage-assist/internal/llm"
	"triage-assist/pkg"
)

type fakeGenerator struct {
	output string
	err    error
	block  bool

	gotSystem string
	gotUser   string
	calls     int
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.gotSystem = system
	f.gotUser = user
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.output, f.err
}

func newTestService(t *testing.T, gen llm.Generator, timeout time.Duration) *TriageService {
	t.Helper()
	return NewTriageService(nil, gen, timeout, zaptest.NewLogger(t))
}

func TestTriageService_Local(t *testing.T) {
	svc := newTestService(t, nil, 0)

	out, err := svc.Evaluate(context.Background(), "意識がない", ModeLocal)
	require.NoError(t, err)
	assert.Equal(t, ModeLocal, out.Mode)
	assert.Empty(t, out.Provider)
	assert.Equal(t, pkg.UrgencyRed, out.Response.Result.Urgency)
	assert.False(t, svc.RemoteAvailable())
	assert.Empty(t, svc.ProviderName())
}

func TestTriageService_EmptyReport(t *testing.T) {
	gen := &fakeGenerator{output: validModelOutput}
	svc := newTestService(t, gen, 0)

	for _, mode := range []Mode{ModeLocal, ModeRemote} {
		for _, text := range []string{"", "   ", "\n\t　"} {
			_, err := svc.Evaluate(context.Background(), text, mode)
			assert.ErrorIs(t, err, ErrEmptyReport)
		}
	}
	assert.Zero(t, gen.calls)
}

func TestTriageService_RemoteUnavailable(t *testing.T) {
	svc := newTestService(t, nil, 0)
	_, err := svc.Evaluate(context.Background(), "胸が痛い", ModeRemote)
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
	assert.Equal(t, KindRemoteUnavailable, ErrorKind(err))
}

func TestTriageService_UnknownMode(t *testing.T) {
	svc := newTestService(t, nil, 0)
	_, err := svc.Evaluate(context.Background(), "胸が痛い", Mode("hybrid"))
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestTriageService_Remote(t *testing.T) {
	tests := []struct {
		name    string
		gen     *fakeGenerator
		kind    string
		urgency pkg.UrgencyLevel
	}{
		{name: "valid json", gen: &fakeGenerator{output: validModelOutput}, urgency: pkg.UrgencyYellow},
		{name: "json in prose", gen: &fakeGenerator{output: "判定:\n" + validModelOutput + "\n以上"}, urgency: pkg.UrgencyYellow},
		{name: "not json", gen: &fakeGenerator{output: "わかりません"}, kind: KindParse},
		{name: "schema mismatch", gen: &fakeGenerator{output: `{"version":"0.1","result":{"urgency":"purple","steps":[]}}`}, kind: KindSchema},
		{
			name: "transport failure",
			gen:  &fakeGenerator{err: &llm.TransportError{Provider: "fake", StatusCode: 500, Body: "boom"}},
			kind: KindTransport,
		},
		{name: "unclassified failure", gen: &fakeGenerator{err: errors.New("socket closed")}, kind: KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.gen, 0)
			out, err := svc.Evaluate(context.Background(), "胸が痛い", ModeRemote)

			assert.Equal(t, 1, tt.gen.calls)
			assert.Equal(t, SystemPrompt, tt.gen.gotSystem)
			assert.Equal(t, "胸が痛い", tt.gen.gotUser)
			if tt.kind != "" {
				require.Error(t, err)
				assert.Nil(t, out)
				assert.Equal(t, tt.kind, ErrorKind(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ModeRemote, out.Mode)
			assert.Equal(t, "fake", out.Provider)
			assert.Equal(t, tt.urgency, out.Response.Result.Urgency)
		})
	}
}

func TestTriageService_RemoteTimeout(t *testing.T) {
	gen := &fakeGenerator{block: true}
	svc := newTestService(t, gen, 20*time.Millisecond)

	_, err := svc.Evaluate(context.Background(), "胸が痛い", ModeRemote)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, ErrorKind(err))
}

func TestTriageService_RemoteCancelled(t *testing.T) {
	gen := &fakeGenerator{block: true}
	svc := newTestService(t, gen, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Evaluate(ctx, "胸が痛い", ModeRemote)
	assert.Equal(t, KindCancelled, ErrorKind(err))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeLocal, false},
		{"local", ModeLocal, false},
		{"dummy", ModeLocal, false},
		{" LOCAL ", ModeLocal, false},
		{"remote", ModeRemote, false},
		{"llm", ModeRemote, false},
		{"azure-openai", ModeRemote, false},
		{"openai", ModeRemote, false},
		{"gemini-only", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrEmptyReport, KindEmptyReport},
		{fmt.Errorf("wrap: %w", ErrUnknownMode), KindUnknownMode},
		{ErrRemoteUnavailable, KindRemoteUnavailable},
		{&ParseError{Snippet: "x", Err: errors.New("bad")}, KindParse},
		{fmt.Errorf("wrap: %w", &SchemaValidationError{Field: "version"}), KindSchema},
		{fmt.Errorf("openai generation: %w", &llm.TransportError{Provider: "openai", StatusCode: 429}), KindTransport},
		{fmt.Errorf("wrap: %w", context.DeadlineExceeded), KindTimeout},
		{context.Canceled, KindCancelled},
		{errors.New("other"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), "%v", tt.err)
	}
}
