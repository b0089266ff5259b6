// Package report renders contract analysis results as a PDF.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/dukerupert/clausedesk/internal/analysis"
)

type Input struct {
	Title       string
	Company     string
	GeneratedAt time.Time
	Analysis    analysis.Full
}

// Filename returns a download name for a report generated at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("contract_report_%s.pdf", t.Format("20060102_150405"))
}

// Render produces the PDF bytes.
func Render(in Input) ([]byte, error) {
	if in.Title == "" {
		in.Title = "Contract Analysis Report"
	}
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(in.Title, true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, tr(in.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if in.Company != "" {
		pdf.CellFormat(0, 6, tr("Prepared for "+in.Company), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 6, in.GeneratedAt.Format("January 2, 2006"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	w := &writer{pdf: pdf, tr: tr}
	a := in.Analysis

	w.section("Contract Score")
	w.line(fmt.Sprintf("Overall score: %d / 100", a.Score.OverallScore))
	b := a.Score.Breakdown
	w.line(fmt.Sprintf("Clarity and language: %d", b.ClarityAndLanguage))
	w.line(fmt.Sprintf("Comprehensiveness: %d", b.Comprehensiveness))
	w.line(fmt.Sprintf("Risk protection: %d", b.RiskProtection))
	w.line(fmt.Sprintf("Balanced rights: %d", b.BalancedRights))
	w.line(fmt.Sprintf("Compliance: %d", b.Compliance))
	w.para(a.Score.Summary)

	w.section("Risks")
	for _, name := range sortedKeys(a.Risks.Risks) {
		r := a.Risks.Risks[name]
		w.heading(fmt.Sprintf("%s (%s)", humanize(name), r.Level))
		w.para(r.Description)
		w.labelled("Impact", r.PotentialImpact)
		w.labelled("Mitigation", r.MitigationSuggestions)
	}

	w.section("Opportunities")
	for _, name := range sortedKeys(a.Risks.Opportunities) {
		o := a.Risks.Opportunities[name]
		w.heading(fmt.Sprintf("%s (%s)", humanize(name), o.Level))
		w.para(o.Description)
		w.labelled("Value", o.PotentialValue)
		w.labelled("Actions", o.ActionItems)
	}

	w.section("Key Clauses")
	for _, c := range a.Clauses.KeyClauses {
		w.heading(c.ClauseType)
		w.para(c.ClauseExtract)
		w.labelled("Meaning", c.Explanation)
		w.labelled("Concerns", c.Concerns)
	}

	if len(a.KeyTerms.KeyTerms) > 0 {
		w.section("Key Terms")
		for _, kt := range a.KeyTerms.KeyTerms {
			w.heading(kt.Term)
			w.para(kt.Definition)
			w.labelled("In plain terms", kt.Explanation)
		}
	}

	w.section("Summary")
	s := a.Summary
	w.labelled("Type", s.ContractType)
	w.labelled("Parties", strings.Join(s.Parties, ", "))
	w.labelled("Purpose", s.Purpose)
	for _, p := range s.KeyProvisions {
		w.para("- " + p)
	}
	for _, d := range s.ImportantDates {
		w.labelled(d.Event, d.Date)
	}
	w.para(s.Summary)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type writer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (w *writer) section(title string) {
	w.pdf.Ln(3)
	w.pdf.SetFont("Helvetica", "B", 14)
	w.pdf.SetFillColor(230, 236, 245)
	w.pdf.CellFormat(0, 9, w.tr(title), "", 1, "L", true, 0, "")
	w.pdf.Ln(1)
}

func (w *writer) heading(text string) {
	if text == "" {
		return
	}
	w.pdf.SetFont("Helvetica", "B", 11)
	w.pdf.MultiCell(0, 6, w.tr(text), "", "L", false)
}

func (w *writer) line(text string) {
	w.pdf.SetFont("Helvetica", "", 10)
	w.pdf.CellFormat(0, 6, w.tr(text), "", 1, "L", false, 0, "")
}

func (w *writer) para(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	w.pdf.SetFont("Helvetica", "", 10)
	w.pdf.MultiCell(0, 5, w.tr(text), "", "L", false)
	w.pdf.Ln(1)
}

func (w *writer) labelled(label, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	w.para(label + ": " + text)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func humanize(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
