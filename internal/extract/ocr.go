package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	// PageSegSingleBlock assumes a single uniform block of text (--psm 6).
	PageSegSingleBlock = 6
	// EngineModeDefault lets tesseract pick its engine (--oem 3).
	EngineModeDefault = 3
)

// DefaultLanguages are the tesseract language packs used when none are configured.
var DefaultLanguages = []string{"rus", "eng"}

// Engine recognizes text in a preprocessed PNG image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, png []byte) (string, error)
}

// CLIEngine runs the tesseract binary, streaming the image over stdin.
type CLIEngine struct {
	Path           string
	Languages      []string
	TessdataPrefix string
}

// NewCLIEngine returns an engine that shells out to the binary at path.
func NewCLIEngine(path string, languages []string, tessdataPrefix string) *CLIEngine {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &CLIEngine{Path: path, Languages: languages, TessdataPrefix: tessdataPrefix}
}

func (e *CLIEngine) Name() string { return "tesseract-cli" }

// Args returns the tesseract arguments for reading stdin and writing stdout.
func (e *CLIEngine) Args() []string {
	args := []string{"stdin", "stdout",
		"--oem", strconv.Itoa(EngineModeDefault),
		"--psm", strconv.Itoa(PageSegSingleBlock),
		"-l", strings.Join(e.Languages, "+"),
	}
	if e.TessdataPrefix != "" {
		args = append(args, "--tessdata-dir", e.TessdataPrefix)
	}
	return args
}

// Recognize runs tesseract; the process is killed if ctx is cancelled.
func (e *CLIEngine) Recognize(ctx context.Context, png []byte) (string, error) {
	if strings.TrimSpace(e.Path) == "" {
		return "", fmt.Errorf("tesseract path not configured")
	}
	cmd := exec.CommandContext(ctx, e.Path, e.Args()...)
	cmd.Stdin = bytes.NewReader(png)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, msg)
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return stdout.String(), nil
}
