package ancs

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/cristianoliveira/ancs-intray/internal/colors"
	"github.com/cristianoliveira/ancs-intray/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Emit(ctx context.Context, n Resolved) error {
	return m.Called(ctx, n).Error(0)
}

func TestSinksFanOut(t *testing.T) {
	ctx := context.Background()
	n := Resolved{ID: 1, Title: "hello"}

	failing := &mockSink{}
	failing.On("Emit", ctx, n).Return(errors.New("disk full")).Once()
	ok := &mockSink{}
	ok.On("Emit", ctx, n).Return(nil).Once()

	var funcCalls int
	sinks := NewSinks(logging.Noop(), failing, ok)
	sinks.Add(SinkFunc(func(context.Context, Resolved) error {
		funcCalls++
		return nil
	}))

	require.NoError(t, sinks.Emit(ctx, n))
	failing.AssertExpectations(t)
	ok.AssertExpectations(t)
	assert.Equal(t, 1, funcCalls)
}

func TestPrinter(t *testing.T) {
	tests := []struct {
		name string
		n    Resolved
		want string
	}{
		{
			name: "resolved application",
			n: Resolved{
				Category: CategorySocial,
				AppID:    "com.apple.MobileSMS",
				AppName:  "Messages",
				Date:     "20261019T101500",
				Title:    "Alice",
				Message:  "see you at 5",
			},
			want: "Notification from Messages (com.apple.MobileSMS)\n" +
				"\tCategory: Social\n" +
				"\t    Date: 20261019T101500\n" +
				"\t   Title: Alice\n" +
				"\t Message: see you at 5\n\n",
		},
		{
			name: "unknown application hides the id",
			n: Resolved{
				Category: CategoryEmail,
				AppID:    "com.example.mail",
				AppName:  UnknownName,
				Title:    "Invoice",
			},
			want: "Notification from <unknown> (<unknown>)\n" +
				"\tCategory: E-mail\n" +
				"\t    Date: \n" +
				"\t   Title: Invoice\n" +
				"\t Message: \n\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewPrinter(&buf, false).Emit(context.Background(), tt.n))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrinterColor(t *testing.T) {
	var buf bytes.Buffer
	n := Resolved{Category: CategoryNews, AppName: "News", AppID: "com.apple.news"}
	require.NoError(t, NewPrinter(&buf, true).Emit(context.Background(), n))

	out := buf.String()
	assert.Contains(t, out, colors.Bold+"Notification from"+colors.Reset)
	assert.Contains(t, out, colors.Green+"News"+colors.Reset)
	assert.Contains(t, out, colors.Cyan+"News"+colors.Reset)
}
