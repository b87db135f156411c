package logx_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/standardbeagle/mjbridge/internal/logx"
)

func TestConfigureLogLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logx.Configure("all")
	if zerolog.GlobalLevel() != zerolog.TraceLevel {
		t.Fatalf("expected trace level, got %s", zerolog.GlobalLevel())
	}

	logx.Configure("WARNING")
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %s", zerolog.GlobalLevel())
	}

	logx.Configure("none")
	if zerolog.GlobalLevel() != zerolog.Disabled {
		t.Fatalf("expected disabled level, got %s", zerolog.GlobalLevel())
	}

	logx.Configure("bogus")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %s", zerolog.GlobalLevel())
	}
}

func TestNewWritesJSONToNonTerminal(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	l := logx.New(&buf)
	l.Info().Str("session", "abc").Msg("hello")

	out := buf.String()
	if !bytes.Contains([]byte(out), []byte(`"session":"abc"`)) {
		t.Fatalf("expected JSON output, got %q", out)
	}
}
