package catalog

// MaxPublisherDepth bounds the subOrganizationOf walk. Deeper chains are
// treated as cyclic or corrupt.
const MaxPublisherDepth = 32

// NoPublisher is the path used for entries without a publisher.
var NoPublisher = NewTuple(None)

// Publisher is either a leaf (a bare name, no parent) or a node with a
// parent organization.
type Publisher struct {
	name   string
	parent *Publisher
}

// Leaf returns a publisher with no parent organization.
func Leaf(name string) *Publisher { return &Publisher{name: name} }

// Node returns a publisher that is a sub-organization of parent.
func Node(name string, parent *Publisher) *Publisher {
	return &Publisher{name: name, parent: parent}
}

// Path walks the parent chain and returns the organization names ordered
// from the top-level ancestor down to p. A nil publisher yields NoPublisher.
func (p *Publisher) Path() (Tuple, error) {
	if p == nil {
		return NoPublisher, nil
	}
	var names []string
	for cur := p; cur != nil; cur = cur.parent {
		if len(names) == MaxPublisherDepth {
			return Tuple{}, malformed("publisher", "organization chain deeper than %d", MaxPublisherDepth)
		}
		names = append(names, cur.name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return NewTuple(names...), nil
}

// parsePublisher converts a decoded publisher value. Catalogs in the wild
// use both the structured form {name, subOrganizationOf} and a bare string.
func parsePublisher(raw any) (*Publisher, error) {
	var names []string
	cur := raw
	for !empty(cur) {
		if len(names) == MaxPublisherDepth {
			return nil, malformed("publisher", "organization chain deeper than %d", MaxPublisherDepth)
		}
		switch v := cur.(type) {
		case string:
			names = append(names, v)
			cur = nil
		case map[string]any:
			name, ok := v["name"].(string)
			if !ok {
				return nil, malformed("publisher", "organization without a name")
			}
			names = append(names, name)
			cur = v["subOrganizationOf"]
		default:
			return nil, malformed("publisher", "unexpected %T", cur)
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	var p *Publisher
	for i := len(names) - 1; i >= 0; i-- {
		p = &Publisher{name: names[i], parent: p}
	}
	return p, nil
}

func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}
