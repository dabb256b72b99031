package broker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"coverfill/internal/catalog"
	"coverfill/internal/engine"
	"coverfill/internal/provider"
)

const descriptionPreview = 60

// Terminal prompts on a line-oriented terminal.
type Terminal struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewTerminal reads answers from in and writes prompts to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewScanner(in), out: out}
}

func (t *Terminal) PickCandidate(ctx context.Context, pending engine.Pending) (Decision, error) {
	fmt.Fprintf(t.out, "\nNo exact match for %q. Candidates from %s:\n", pending.Item.Name, pending.Provider)
	rows := make([][]string, 0, len(pending.Candidates))
	for i, candidate := range pending.Candidates {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			candidate.DisplayName,
			candidate.Year,
			preview(candidate.Description),
		})
	}
	fmt.Fprintln(t.out, renderTable([]string{"#", "Name", "Year", "Description"}, rows, 0))

	for {
		line, err := t.ask(ctx, "Number to pick, 'm <url>' for a manual cover, 's' to skip: ")
		if err != nil {
			return Decision{}, err
		}
		switch {
		case strings.EqualFold(line, "s"):
			return Decision{Action: ActionSkip}, nil
		case strings.HasPrefix(strings.ToLower(line), "m "):
			return Decision{Action: ActionManual, URL: strings.TrimSpace(line[2:])}, nil
		}
		if n, convErr := strconv.Atoi(line); convErr == nil {
			return Decision{Action: ActionSelect, Candidate: n - 1}, nil
		}
		t.Notice(ctx, fmt.Sprintf("unrecognized answer %q", line))
	}
}

func (t *Terminal) PickCover(ctx context.Context, candidate catalog.Candidate, detail provider.Detail) (int, bool, error) {
	fmt.Fprintf(t.out, "\nCovers for %s:\n", candidate.DisplayName)
	rows := make([][]string, 0, len(detail.Covers))
	for i, cover := range detail.Covers {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%dx%d", cover.Width, cover.Height),
			strconv.Itoa(cover.Score),
			cover.Style,
			cover.URL,
		})
	}
	fmt.Fprintln(t.out, renderTable([]string{"#", "Size", "Score", "Style", "URL"}, rows, 2))

	for {
		line, err := t.ask(ctx, "Cover number, or 'b' to go back: ")
		if err != nil {
			return 0, false, err
		}
		if strings.EqualFold(line, "b") {
			return 0, false, nil
		}
		if n, convErr := strconv.Atoi(line); convErr == nil {
			return n - 1, true, nil
		}
		t.Notice(ctx, fmt.Sprintf("unrecognized answer %q", line))
	}
}

func (t *Terminal) Notice(_ context.Context, message string) {
	fmt.Fprintf(t.out, "! %s\n", message)
}

func (t *Terminal) ask(ctx context.Context, prompt string) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprint(t.out, prompt)
		if !t.in.Scan() {
			if err := t.in.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		if line := strings.TrimSpace(t.in.Text()); line != "" {
			return line, nil
		}
	}
}

func preview(description string) string {
	description = strings.Join(strings.Fields(description), " ")
	runes := []rune(description)
	if len(runes) <= descriptionPreview {
		return description
	}
	return string(runes[:descriptionPreview-1]) + "…"
}

// renderTable draws a rounded table. A positive rightAligned right-aligns the
// zero-based column at that index.
func renderTable(headers []string, rows [][]string, rightAligned int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	if rightAligned > 0 {
		tw.SetColumnConfigs([]table.ColumnConfig{{
			Number:      rightAligned + 1,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		}})
	}
	return tw.Render()
}
