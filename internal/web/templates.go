package web

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/JonMunkholm/tabclass/internal/job"
	"github.com/a-h/templ"
)

const pageStyle = `body{font-family:system-ui,sans-serif;max-width:60rem;margin:2rem auto;padding:0 1rem;color:#1f2933}
table{border-collapse:collapse;width:100%}th,td{text-align:left;padding:.4rem;border-bottom:1px solid #e4e7eb}
form.upload{display:grid;grid-template-columns:12rem 1fr;gap:.5rem;margin-top:1rem}code{background:#f5f7fa;padding:0 .2rem}`

// Index renders the landing page: the registered jobs and a form for
// ad-hoc extraction of an uploaded file.
func Index(jobs []job.Job, maxUpload int64) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}

		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>tabclass</title><style>`)
		p.raw(pageStyle)
		p.raw(`</style></head><body><h1>tabclass</h1>`)

		p.raw(`<h2>Jobs</h2>`)
		if len(jobs) == 0 {
			p.raw(`<p>No jobs registered. Set <code>EXTRACT_JOBS_FILE</code> to load some.</p>`)
		} else {
			p.raw(`<table><thead><tr><th>Name</th><th>Source</th><th>Columns</th><th>Classify</th><th></th></tr></thead><tbody>`)
			for _, j := range jobs {
				p.raw(`<tr><td>`)
				p.text(j.Name)
				if j.Description != "" {
					p.raw(`<br><small>`)
					p.text(j.Description)
					p.raw(`</small>`)
				}
				p.raw(`</td><td>`)
				p.text(job.Describe(j.Source))
				p.raw(`</td><td>`)
				p.text(strings.Join(j.Columns, ", "))
				p.raw(`</td><td>`)
				p.text(strings.Join(j.Classify, " / "))
				p.raw(`</td><td><form method="post" action="/api/jobs/`)
				p.text(url.PathEscape(j.Name))
				p.raw(`/run"><button type="submit">Run</button></form></td></tr>`)
			}
			p.raw(`</tbody></table>`)
		}

		p.raw(`<h2>Extract a file</h2>`)
		p.raw(fmt.Sprintf(`<p>CSV, TSV or XLSX up to %d MB.</p>`, maxUpload>>20))
		p.raw(`<form class="upload" method="post" action="/api/extract" enctype="multipart/form-data">`)
		for _, f := range uploadFields {
			p.raw(`<label for="`)
			p.text(f.name)
			p.raw(`">`)
			p.text(f.label)
			p.raw(`</label>`)
			p.raw(f.input)
		}
		p.raw(`<span></span><button type="submit">Extract</button></form></body></html>`)

		return p.err
	})
}

type uploadField struct {
	name  string
	label string
	input string
}

var uploadFields = []uploadField{
	{"file", "File", `<input id="file" name="file" type="file" required>`},
	{"columns", "Columns", `<input id="columns" name="columns" placeholder="name, score" required>`},
	{"classify", "Classify by", `<input id="classify" name="classify" placeholder="team, season">`},
	{"required", "Required", `<input id="required" name="required" placeholder="name">`},
	{"default", "Default value", `<input id="default" name="default">`},
	{"unique", "Last row wins", `<input id="unique" name="unique" type="checkbox">`},
	{"skip_empty_groups", "Skip empty groups", `<input id="skip_empty_groups" name="skip_empty_groups" type="checkbox">`},
	{"sheet", "Sheet", `<input id="sheet" name="sheet">`},
	{"encoding", "Encoding", `<input id="encoding" name="encoding" placeholder="utf-8">`},
	{"format", "Format", `<select id="format" name="format"><option>json</option><option>csv</option><option>xlsx</option></select>`},
}

// printer writes page fragments and keeps the first error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) text(s string) {
	p.raw(templ.EscapeString(s))
}
