package airwave

import "fmt"

// DecodeAPDetail decodes an ap_detail.xml body. The result has the same
// accessors as an AP list entry; its radios additionally carry clients.
func DecodeAPDetail(data []byte) (*APNode, error) {
	root, err := descend(data, apDetailRoot)
	if err != nil {
		return nil, fmt.Errorf("decode AP detail: %w", err)
	}
	aps := root.Maps(apElement)
	if len(aps) == 0 {
		return nil, fmt.Errorf("decode AP detail: %w: no <%s> in <%s>", ErrUnexpectedDocument, apElement, apDetailRoot)
	}
	return &APNode{fields: aps[0]}, nil
}
