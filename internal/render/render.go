// Package render prints a store export for the collaborator: an indented
// tree for people and indented JSON for scripts.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/mesh-intelligence/treesync/pkg/types"
)

// Options controls tree output.
type Options struct {
	// Color highlights deleted nodes. Leave false when writing to a file or
	// pipe.
	Color bool
}

const deletedSuffix = " (deleted)"

// Tree writes exp as a hierarchy. A record whose parent is not in the export
// is drawn as a root. Children follow the parent's children list, then any
// remaining child in id order.
func Tree(w io.Writer, exp types.Export, opts Options) error {
	deleted := color.New(color.FgWhite, color.BgRed)
	if opts.Color {
		deleted.EnableColor()
	} else {
		deleted.DisableColor()
	}

	p := &printer{
		w:        w,
		exp:      exp,
		deleted:  deleted,
		byParent: childrenByParent(exp),
		seen:     make(map[string]bool, len(exp.Nodes)),
	}

	if _, err := fmt.Fprintf(w, "%s (%d nodes)\n", exp.Store, exp.Len()); err != nil {
		return err
	}
	roots := make([]string, 0)
	for id, rec := range exp.Nodes {
		if _, ok := exp.Nodes[rec.Parent]; !ok || rec.Parent == id {
			roots = append(roots, id)
		}
	}
	slices.SortFunc(roots, compareIDs)
	for _, id := range roots {
		if err := p.node(id, ""); err != nil {
			return err
		}
	}
	return nil
}

type printer struct {
	w        io.Writer
	exp      types.Export
	deleted  *color.Color
	byParent map[string][]string
	seen     map[string]bool
}

func (p *printer) node(id, indent string) error {
	if p.seen[id] {
		return nil
	}
	p.seen[id] = true
	rec := p.exp.Nodes[id]

	line := fmt.Sprintf("[%s] %s", rec.ID, rec.Name)
	if rec.Value != "" {
		line += ": " + rec.Value
	}
	if rec.Deleted {
		line = p.deleted.Sprint(line + deletedSuffix)
	}
	if _, err := fmt.Fprintln(p.w, indent+line); err != nil {
		return err
	}
	for _, child := range p.orderedChildren(rec) {
		if err := p.node(child, indent+"  "); err != nil {
			return err
		}
	}
	return nil
}

// orderedChildren lists the exported records whose parent is rec.
func (p *printer) orderedChildren(rec types.Record) []string {
	present := p.byParent[rec.ID]
	out := make([]string, 0, len(present))
	for _, c := range rec.Children {
		if slices.Contains(present, c) && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	for _, c := range present {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func childrenByParent(exp types.Export) map[string][]string {
	out := make(map[string][]string)
	for id, rec := range exp.Nodes {
		if rec.Parent == id {
			continue
		}
		out[rec.Parent] = append(out[rec.Parent], id)
	}
	for parent := range out {
		slices.SortFunc(out[parent], compareIDs)
	}
	return out
}

// compareIDs orders numeric ids numerically and everything else lexically.
func compareIDs(a, b string) int {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai - bi
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// JSON writes the exported mapping as indented JSON.
func JSON(w io.Writer, exp types.Export) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exp)
}
