package narrate

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultText is narrated when no input is given.
//
//go:embed default.txt
var DefaultText string

// LoadText resolves the input text. An inline value wins over a file; path
// "-" reads stdin. With neither, DefaultText is returned.
func LoadText(inline, path string, stdin io.Reader) (string, error) {
	if inline != "" {
		return inline, nil
	}

	var (
		data []byte
		err  error
	)
	switch path {
	case "":
		return DefaultText, nil
	case "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading text from %q: %w", path, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("text source %q is empty", path)
	}
	return text, nil
}
