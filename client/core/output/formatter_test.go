package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"PRETTY", FormatPretty, false},
		{"table", FormatTable, false},
		{"", FormatText, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseFormat(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatJSON, &buf)
	if err := f.Print(map[string]interface{}{"status": "JOINED"}); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{"status":"JOINED"}` {
		t.Errorf("got %s", got)
	}
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatTable, &buf)
	err := f.Print([]map[string]interface{}{
		{"name": "1 SOL", "escrowed": true},
		{"name": "NFT - abc", "escrowed": false},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"escrowed", "name", "1 SOL", "NFT - abc"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestMessagesGoToLogWriter(t *testing.T) {
	var data, logs bytes.Buffer
	f := NewFormatter(FormatJSON, &data)
	f.SetLogWriter(&logs)

	f.PrintSuccess("joined")
	f.PrintError(errors.New("boom"))

	if data.Len() != 0 {
		t.Errorf("data writer polluted: %q", data.String())
	}
	if !strings.Contains(logs.String(), "joined") || !strings.Contains(logs.String(), "boom") {
		t.Errorf("log writer missing messages: %q", logs.String())
	}

	logs.Reset()
	f.SetSilent(true)
	f.PrintInfo("quiet")
	if logs.Len() != 0 {
		t.Errorf("silent formatter printed %q", logs.String())
	}
}
