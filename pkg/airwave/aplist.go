package airwave

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/fbettag/airwave-monitor/pkg/xmlmap"
)

// ErrUnexpectedDocument is returned when a document decodes as XML but lacks
// the container element the decoder expects.
var ErrUnexpectedDocument = errors.New("airwave: unexpected document")

const (
	apListRoot   = "amp:amp_ap_list"
	apDetailRoot = "amp:amp_ap_detail"
	reportRoot   = "amp:report"
	apElement    = "ap"
)

// descend decodes data and returns the mapping under root.
func descend(data []byte, root string) (*xmlmap.Map, error) {
	doc, err := xmlmap.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	m, ok := doc.Map(root)
	if !ok {
		return nil, fmt.Errorf("%w: missing <%s>, got %v", ErrUnexpectedDocument, root, doc.Keys())
	}
	return m, nil
}

// APList is the decoded body of ap_list.xml in document order.
type APList struct {
	nodes []*APNode
}

// DecodeAPList decodes an ap_list.xml body. A list holding a single AP still
// yields a one-element APList.
func DecodeAPList(data []byte) (*APList, error) {
	root, err := descend(data, apListRoot)
	if err != nil {
		return nil, fmt.Errorf("decode AP list: %w", err)
	}

	maps := root.Maps(apElement)
	list := &APList{nodes: make([]*APNode, 0, len(maps))}
	for _, m := range maps {
		list.nodes = append(list.nodes, &APNode{fields: m})
	}
	return list, nil
}

func (l *APList) Len() int {
	return len(l.nodes)
}

// At returns the i-th AP. It panics when i is out of range.
func (l *APList) At(i int) *APNode {
	return l.nodes[i]
}

// Nodes returns the APs as a new slice.
func (l *APList) Nodes() []*APNode {
	out := make([]*APNode, len(l.nodes))
	copy(out, l.nodes)
	return out
}

// FindByID returns the first AP whose @id parses to id.
func (l *APList) FindByID(id int) (*APNode, bool) {
	for _, n := range l.nodes {
		if nid, ok := n.NumericID(); ok && nid == id {
			return n, true
		}
	}
	return nil, false
}

// FindByName returns the first AP whose name equals name exactly.
func (l *APList) FindByName(name string) (*APNode, bool) {
	for _, n := range l.nodes {
		if n.Name() == name {
			return n, true
		}
	}
	return nil, false
}

// Search looks up key the way the AirWave UI does: a key of ASCII digits
// only is matched against @id, anything else (signs included) against the
// AP name. Use FindByName for APs whose name is all digits.
func (l *APList) Search(key string) (*APNode, bool) {
	if isDigits(key) {
		if id, err := strconv.Atoi(key); err == nil {
			return l.FindByID(id)
		}
	}
	return l.FindByName(key)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// APNode is one <ap> element of an AP list or AP detail document.
type APNode struct {
	fields *xmlmap.Map
}

// ID returns the raw @id attribute.
func (n *APNode) ID() string {
	s, _ := n.fields.String("@id")
	return s
}

// NumericID returns @id as an integer.
func (n *APNode) NumericID() (int, bool) {
	id, err := strconv.Atoi(n.ID())
	if err != nil {
		return 0, false
	}
	return id, true
}

func (n *APNode) Name() string {
	s, _ := n.fields.String("name")
	return s
}

// LANMAC returns the wired MAC address, the key of radio-level graphs.
func (n *APNode) LANMAC() string {
	s, _ := n.fields.String("lan_mac")
	return s
}

// Radios returns the radio records in document order.
func (n *APNode) Radios() []Radio {
	maps := n.fields.Maps("radio")
	radios := make([]Radio, 0, len(maps))
	for _, m := range maps {
		radios = append(radios, Radio{fields: m})
	}
	return radios
}

// RadioTypes returns the type code of every radio, in order.
func (n *APNode) RadioTypes() []RadioType {
	var types []RadioType
	for _, r := range n.Radios() {
		if t := r.Type(); t != "" {
			types = append(types, t)
		}
	}
	return types
}

// Get returns a raw field by its vendor name.
func (n *APNode) Get(key string) (any, bool) {
	return n.fields.Get(key)
}

// String returns a character data field by its vendor name.
func (n *APNode) String(key string) (string, bool) {
	return n.fields.String(key)
}

// Fields returns the underlying ordered mapping.
func (n *APNode) Fields() *xmlmap.Map {
	return n.fields
}

func (n *APNode) MarshalJSON() ([]byte, error) {
	return n.fields.MarshalJSON()
}

// Radio is one <radio> record of an AP.
type Radio struct {
	fields *xmlmap.Map
}

// Index returns the @index attribute.
func (r Radio) Index() string {
	s, _ := r.fields.String("@index")
	return s
}

func (r Radio) Type() RadioType {
	s, _ := r.fields.String("radio_type")
	return RadioType(s)
}

// Interface returns radio_interface, empty when AirWave omits it.
func (r Radio) Interface() string {
	s, _ := r.fields.String("radio_interface")
	return s
}

func (r Radio) Get(key string) (any, bool) {
	return r.fields.Get(key)
}

// Clients returns the associated client records. Only AP detail documents
// carry them.
func (r Radio) Clients() []*xmlmap.Map {
	return r.fields.Maps("client")
}

func (r Radio) MarshalJSON() ([]byte, error) {
	return r.fields.MarshalJSON()
}
