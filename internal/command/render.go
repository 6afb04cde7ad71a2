// Package command renders declarative job descriptions into concrete
// ffmpeg invocations.
//
// Supported placeholders inside a command template:
//   - {{ output_filename }}, {{ output }}, {{ output_path }} -> the single
//     default output path, shell-quoted
//   - {{ <output_key> }} -> that output's path, if the key is in the
//     output map
//   - {{ in_N }} (1-based) -> the Nth input path in insertion order
//   - {{ <input_key> }} -> that input's path, if the key is in the
//     input map
//
// Unknown placeholders are left byte-identical; they surface downstream
// as an ffmpeg failure rather than a render error.
package command

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/clipforge/ffdispatch/internal/job"
)

// Tool is the fixed invocation token every rendered command begins with.
const Tool = "ffmpeg"

var (
	placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)
	positionalPattern  = regexp.MustCompile(`^in_(\d+)$`)
)

// Render turns a command template plus input/output path maps into the
// final executable command line. It is pure: same arguments always yield
// the same string, and it touches neither the filesystem nor any
// subprocess.
func Render(template string, inputs, outputs job.FileMap) string {
	var defaultOutput string
	if outputs.Len() == 1 {
		defaultOutput = outputs[0].Path
	}

	rendered := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-2])
		return resolve(match, key, inputs, outputs, defaultOutput)
	})

	// Back compatibility: a template written before output placeholders
	// existed names no output at all, so the single output path is
	// appended as a trailing argument.
	if !strings.Contains(template, "{{") &&
		!strings.Contains(rendered, "output") &&
		defaultOutput != "" {
		rendered = rendered + " " + Quote(defaultOutput)
	}

	full := strings.TrimSpace(rendered)
	if !strings.HasPrefix(full, Tool) {
		full = Tool + " " + full
	}
	return full
}

func resolve(match, key string, inputs, outputs job.FileMap, defaultOutput string) string {
	switch key {
	case "output_filename", "output", "output_path":
		if defaultOutput != "" {
			return Quote(defaultOutput)
		}
		return match
	}

	if path, ok := outputs.Get(key); ok {
		return Quote(path)
	}

	if m := positionalPattern.FindStringSubmatch(key); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= inputs.Len() {
			return Quote(inputs[n-1].Path)
		}
		return match
	}

	if path, ok := inputs.Get(key); ok {
		return Quote(path)
	}

	return match
}

// Quote renders a path as a single shell-safe token. Embedded quotes,
// spaces and metacharacters cannot escape the token or inject commands.
func Quote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}
