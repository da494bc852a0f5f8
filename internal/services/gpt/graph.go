package gpt

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

const parametersClass = "com.bc.ceres.binding.dom.XppDomElement"

type xmlGraph struct {
	XMLName xml.Name  `xml:"graph"`
	ID      string    `xml:"id,attr"`
	Version string    `xml:"version"`
	Nodes   []xmlNode `xml:"node"`
}

type xmlNode struct {
	ID         string        `xml:"id,attr"`
	Operator   string        `xml:"operator"`
	Sources    xmlSources    `xml:"sources"`
	Parameters xmlParameters `xml:"parameters"`
}

type xmlSources struct {
	Refs []xmlSourceRef
}

type xmlSourceRef struct {
	XMLName xml.Name
	RefID   string `xml:"refid,attr"`
}

type xmlParameters struct {
	Class   string `xml:"class,attr,omitempty"`
	Entries []xmlParameter
}

type xmlParameter struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// graphBuilder assigns node IDs the way the SNAP graph builder does:
// the operator name, then "Name(2)", "Name(3)" for repeats.
type graphBuilder struct {
	nodes []xmlNode
	ids   map[*product]string
	used  map[string]int
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{ids: map[*product]string{}, used: map[string]int{}}
}

func (b *graphBuilder) nextID(operator string) string {
	b.used[operator]++
	if n := b.used[operator]; n > 1 {
		return operator + "(" + strconv.Itoa(n) + ")"
	}
	return operator
}

// add emits nodes for p and everything it depends on, sources first, and
// returns p's node ID.
func (b *graphBuilder) add(p *product) (string, error) {
	if id, ok := b.ids[p]; ok {
		return id, nil
	}
	if p.path != "" {
		id := b.nextID("Read")
		b.nodes = append(b.nodes, xmlNode{
			ID:       id,
			Operator: "Read",
			Parameters: xmlParameters{
				Class:   parametersClass,
				Entries: []xmlParameter{param("file", p.path)},
			},
		})
		b.ids[p] = id
		return id, nil
	}
	if p.op == nil {
		return "", fmt.Errorf("product %s has neither a file nor an operator", p.label)
	}

	refs := make([]xmlSourceRef, 0, len(p.sources))
	for i, src := range p.sources {
		srcID, err := b.add(src)
		if err != nil {
			return "", err
		}
		refs = append(refs, xmlSourceRef{XMLName: xml.Name{Local: sourceElement(i)}, RefID: srcID})
	}

	entries := make([]xmlParameter, 0, len(p.op.Params))
	for _, kv := range p.op.Params {
		entries = append(entries, param(kv.Key, kv.Value.String()))
	}
	id := b.nextID(p.op.Name)
	b.nodes = append(b.nodes, xmlNode{
		ID:         id,
		Operator:   p.op.Name,
		Sources:    xmlSources{Refs: refs},
		Parameters: xmlParameters{Class: parametersClass, Entries: entries},
	})
	b.ids[p] = id
	return id, nil
}

func (b *graphBuilder) write(sourceID, path, format string) {
	b.nodes = append(b.nodes, xmlNode{
		ID:       b.nextID("Write"),
		Operator: "Write",
		Sources: xmlSources{Refs: []xmlSourceRef{{
			XMLName: xml.Name{Local: sourceElement(0)},
			RefID:   sourceID,
		}}},
		Parameters: xmlParameters{
			Class: parametersClass,
			Entries: []xmlParameter{
				param("file", path),
				param("formatName", format),
			},
		},
	})
}

func (b *graphBuilder) marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(xmlGraph{ID: "Graph", Version: "1.0", Nodes: b.nodes}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal graph: %w", err)
	}
	return append(body, '\n'), nil
}

func sourceElement(index int) string {
	if index == 0 {
		return "sourceProduct"
	}
	return "sourceProduct." + strconv.Itoa(index)
}

func param(name, value string) xmlParameter {
	return xmlParameter{XMLName: xml.Name{Local: name}, Value: value}
}
