package output

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/valyala/fasttemplate"
)

// Template delimiters.
const (
	startTag = "{{"
	endTag   = "}}"
)

// DefaultTemplate is used when no custom template is provided.
const DefaultTemplate = `{{mode}} {{root}}: {{summary}}\n`

// TemplateFormatter renders a user template with {{field}} placeholders.
// Unknown fields are an error. The escapes \n and \t are expanded so
// templates can be passed on the command line.
type TemplateFormatter struct {
	templateStr string
	template    *fasttemplate.Template
	mu          sync.Mutex
}

// NewTemplateFormatter creates a template formatter.
func NewTemplateFormatter(templateStr string) *TemplateFormatter {
	return &TemplateFormatter{
		templateStr: templateStr,
	}
}

// SetTemplate sets or updates the template string.
func (f *TemplateFormatter) SetTemplate(templateStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templateStr = templateStr
	f.template = nil
}

var escapes = strings.NewReplacer(`\n`, "\n", `\t`, "\t")

// Format writes the formatted output to the buffer.
func (f *TemplateFormatter) Format(w *bytes.Buffer, r *Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.template == nil {
		tpl, err := fasttemplate.NewTemplate(escapes.Replace(f.templateStr), startTag, endTag)
		if err != nil {
			return fmt.Errorf("parsing template: %w", err)
		}
		f.template = tpl
	}

	fields := templateFields(r)
	_, err := f.template.ExecuteFunc(w, func(out io.Writer, tag string) (int, error) {
		value, ok := fields[strings.TrimSpace(tag)]
		if !ok {
			return 0, fmt.Errorf("unknown template field %q", tag)
		}
		return io.WriteString(out, value)
	})
	return err
}

// TemplateFields lists the placeholder names a template may use.
func TemplateFields() []string {
	fields := templateFields(&Result{})
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func templateFields(r *Result) map[string]string {
	itoa := strconv.Itoa
	return map[string]string{
		"mode":             r.Mode,
		"root":             r.Root,
		"manifest":         r.Manifest,
		"summary":          r.Summary(),
		"ok":               strconv.FormatBool(!r.HasErrors()),
		"hashed":           itoa(r.Good),
		"unreadable":       itoa(r.Bad),
		"verified":         itoa(r.Verified),
		"failed":           itoa(r.Failed),
		"not_found":        itoa(r.NotFound),
		"malformed":        itoa(r.Malformed),
		"bytes":            strconv.FormatInt(r.BytesHashed, 10),
		"bytes_human":      humanize.IBytes(uint64(r.BytesHashed)),
		"duration":         r.Duration.Round(time.Millisecond).String(),
		"unreadable_paths": strings.Join(r.BadPaths, "\n"),
		"failed_paths":     strings.Join(r.FailedPaths, "\n"),
		"missing_paths":    strings.Join(r.MissingPaths, "\n"),
		"malformed_lines":  strings.Join(r.MalformedLines, "\n"),
	}
}

func init() {
	Register("template", func() Formatter {
		return NewTemplateFormatter(DefaultTemplate)
	})
}

// Ensure TemplateFormatter implements Formatter.
var _ Formatter = (*TemplateFormatter)(nil)
