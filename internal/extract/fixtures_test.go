package extract

import (
	"fmt"
	"strings"
)

const listingURL = "https://apps.htw-dresden.de/modulux/frontend/studiengaenge"

type program struct {
	number, name, degree, start, status string
	link                                string
}

func programs(n int) []program {
	out := make([]program, n)
	for i := range out {
		out[i] = program{
			number: fmt.Sprintf("%03d", i+1),
			name:   fmt.Sprintf("Studiengang %d", i+1),
			degree: "Bachelor",
			start:  "WS 2021/22",
			status: "aktiv",
			link:   fmt.Sprintf("https://apps.htw-dresden.de/modulux/frontend/studiengang/%d", i+1),
		}
	}
	return out
}

func programRow(p program) string {
	link := `<td class="tx-ezqueries-list-data-stg_modulux_link_value"></td>`
	if p.link != "" {
		link = fmt.Sprintf(`<td class="tx-ezqueries-list-data-stg_modulux_link_value"><a href="%s">Modulux</a></td>`, p.link)
	}
	return fmt.Sprintf(`<tr class="tx-ezqueries-list-row"><th scope="row"></th><td> %s </td><td>%s</td><td>%s</td><td>%s</td><td>%s</td>%s</tr>`,
		p.number, p.name, p.degree, p.start, p.status, link)
}

func listingHTML(withReveal bool, rows ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="table table-striped"><tbody>`)
	for _, r := range rows {
		b.WriteString(r)
	}
	b.WriteString(`</tbody></table><nav><ul class="pagination">`)
	b.WriteString(`<li><a class="tx-ezqueries-link page-link text-nowrap" href="#">Weiter</a></li>`)
	if withReveal {
		b.WriteString(`<li><a class="tx-ezqueries-link page-link text-nowrap" href="#">Alle anzeigen</a></li>`)
	}
	b.WriteString(`</ul></nav></body></html>`)
	return b.String()
}

func programRows(ps []program) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = programRow(p)
	}
	return out
}

func detailRow(label, data string) string {
	return fmt.Sprintf(`<div class="tx-ezqueries-detail-row"><div class="tx-ezqueries-detail-label">%s</div><div class="tx-ezqueries-detail-data">%s</div></div>`, label, data)
}

func detailHTML(rows ...string) string {
	return `<html><body><div class="tx-ezqueries-detail-rows">` + strings.Join(rows, "") + `</div></body></html>`
}
