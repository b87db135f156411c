package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Line
		wantOK bool
	}{
		{
			name:   "verb only",
			input:  "hand",
			want:   Line{Verb: "hand", Args: []string{}},
			wantOK: true,
		},
		{
			name:   "verb with args",
			input:  "pon 5m 5m",
			want:   Line{Verb: "pon", Args: []string{"5m", "5m"}},
			wantOK: true,
		},
		{
			name:   "extra whitespace",
			input:  "  graveyard\t1   1 ",
			want:   Line{Verb: "graveyard", Args: []string{"1", "1"}},
			wantOK: true,
		},
		{
			name:  "empty",
			input: "",
		},
		{
			name:  "whitespace only",
			input: " \t \r",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseLine() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Verb != tt.want.Verb {
				t.Errorf("Verb = %q, want %q", got.Verb, tt.want.Verb)
			}
			if strings.Join(got.Args, ",") != strings.Join(tt.want.Args, ",") {
				t.Errorf("Args = %v, want %v", got.Args, tt.want.Args)
			}
		})
	}
}

func TestLineArg(t *testing.T) {
	l := Line{Verb: "direction", Args: []string{"1", "3"}}

	if v, ok := l.Arg(1); !ok || v != "3" {
		t.Errorf("Arg(1) = %q, %v", v, ok)
	}
	if _, ok := l.Arg(2); ok {
		t.Error("Arg(2) should be missing")
	}
	if _, ok := l.Arg(-1); ok {
		t.Error("Arg(-1) should be missing")
	}
}

func TestFormatLine(t *testing.T) {
	tests := []struct {
		verb string
		args []string
		want string
	}{
		{"draw", []string{"3s"}, "draw 3s\n"},
		{"wait", []string{"7p", "2"}, "wait 7p 2\n"},
		{"pass", nil, "pass\n"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := string(FormatLine(tt.verb, tt.args...))
			if got != tt.want {
				t.Errorf("FormatLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReader_ReadRecord(t *testing.T) {
	r := NewReader(strings.NewReader("hand\r\ndiscard 1m\n\nreached 2\npartial"))

	want := []string{"hand", "discard 1m", "", "reached 2"}
	for i, w := range want {
		got, err := r.ReadRecord()
		if err != nil {
			t.Fatalf("record %d: unexpected error %v", i, err)
		}
		if got != w {
			t.Errorf("record %d = %q, want %q", i, got, w)
		}
	}

	if _, err := r.ReadRecord(); !errors.Is(err, ErrPartialRecord) {
		t.Errorf("expected ErrPartialRecord, got %v", err)
	}
}

func TestReader_CleanEOF(t *testing.T) {
	r := NewReader(strings.NewReader("dora\n"))
	if _, err := r.ReadRecord(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.ReadRecord(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteLine(VerbDraw, "east"); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteResponse("1m 2m 3m"); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteResponse(""); err != nil {
		t.Fatal(err)
	}

	want := "draw east\n1m 2m 3m\n\n"
	if buf.String() != want {
		t.Errorf("written = %q, want %q", buf.String(), want)
	}
}

func TestWriter_RejectsEmbeddedNewline(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteLine(VerbDraw, "1m\ndiscard 2m"); !errors.Is(err, ErrEmbeddedNewline) {
		t.Errorf("expected ErrEmbeddedNewline, got %v", err)
	}
	if err := w.WriteResponse("a\nb"); !errors.Is(err, ErrEmbeddedNewline) {
		t.Errorf("expected ErrEmbeddedNewline, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written, got %q", buf.String())
	}
}

func TestFormatResponses(t *testing.T) {
	if got := FormatTiles([]string{"1m", "1m", "9s"}); got != "1m 1m 9s" {
		t.Errorf("FormatTiles = %q", got)
	}
	if got := FormatTiles(nil); got != "" {
		t.Errorf("FormatTiles(nil) = %q", got)
	}
	groups := [][]string{{"2p", "3p", "4p"}, {}, {"north", "north", "north"}}
	if got := FormatGroups(groups); got != "2p 3p 4p north north north" {
		t.Errorf("FormatGroups = %q", got)
	}
	if FormatBool(true) != "True" || FormatBool(false) != "False" {
		t.Error("FormatBool rendering changed")
	}
	if FormatCount(3) != "3" {
		t.Error("FormatCount rendering changed")
	}
}
