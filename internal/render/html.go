package render

import (
	"html"
	"strings"
	"unicode/utf8"
)

const placeholderLine = "[unrenderable line]"

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>%TITLE%</title>
<style>
    body { font-family: Georgia, 'Times New Roman', serif; line-height: 1.7; color: #1a1a1a; max-width: 680px; margin: 0 auto; padding: 40px 20px; }
    h1 { font-size: 22px; border-bottom: 2px solid #0066cc; padding-bottom: 8px; }
    .section-label { font-weight: bold; margin-top: 28px; }
    .excerpt { color: #555; font-style: italic; font-size: 14px; }
    p { margin: 8px 0; }
</style>
</head>
<body>
<h1>%TITLE%</h1>
%BODY%
</body>
</html>`

// BuildHTML converts cleaned pipeline text into the printable page. Each
// line is escaped independently; one unrenderable line becomes a placeholder
// instead of sinking the whole render.
func BuildHTML(title, text string) string {
	var body strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = renderLine(line)
		switch {
		case line == "":
			body.WriteString("<p>&nbsp;</p>\n")
		case strings.HasPrefix(line, "Section "):
			body.WriteString(`<p class="section-label">` + line + "</p>\n")
		case strings.HasPrefix(line, "Original excerpt: "):
			body.WriteString(`<p class="excerpt">` + line + "</p>\n")
		default:
			body.WriteString("<p>" + line + "</p>\n")
		}
	}

	page := strings.ReplaceAll(pageTemplate, "%TITLE%", html.EscapeString(title))
	return strings.Replace(page, "%BODY%", body.String(), 1)
}

func renderLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	if !utf8.ValidString(line) {
		return placeholderLine
	}
	return html.EscapeString(line)
}
