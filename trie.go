package bamboo

// trieNode children are indexes into bitTrie.nodes; 0 means no child since
// the root can never be a child.
type trieNode struct {
	child [2]int32
	seg   *segment
}

// bitTrie maps variable length hash prefixes to segments. The least
// significant bit of a prefix picks the child at the root, the next bit the
// child one level down, and so on. Nodes without children are leaves.
type bitTrie struct {
	nodes  []trieNode
	leaves int
}

func newBitTrie() *bitTrie {
	return &bitTrie{nodes: make([]trieNode, 1, 64)}
}

// insert attaches s at the node reached by following depth bits of prefix,
// creating nodes on the way.
func (t *bitTrie) insert(prefix uint64, depth uint, s *segment) {
	n := int32(0)
	for ; depth > 0; depth-- {
		bit := prefix & 1
		next := t.nodes[n].child[bit]
		if next == 0 {
			t.nodes = append(t.nodes, trieNode{})
			next = int32(len(t.nodes) - 1)
			t.nodes[n].child[bit] = next
		}
		n = next
		prefix >>= 1
	}
	if t.nodes[n].seg == nil {
		t.leaves++
	}
	t.nodes[n].seg = s
}

// clear detaches the segment at prefix/depth without touching its children.
func (t *bitTrie) clear(prefix uint64, depth uint) {
	n := int32(0)
	for ; depth > 0; depth-- {
		if n = t.nodes[n].child[prefix&1]; n == 0 {
			return
		}
		prefix >>= 1
	}
	if t.nodes[n].seg != nil {
		t.leaves--
	}
	t.nodes[n].seg = nil
}

// retrieve descends until it reaches a leaf and returns its segment together
// with the number of prefix bits consumed.
func (t *bitTrie) retrieve(prefix uint64) (*segment, uint) {
	var depth uint
	n := int32(0)
	for {
		node := &t.nodes[n]
		if node.child[0] == 0 && node.child[1] == 0 {
			return node.seg, depth
		}
		if n = node.child[prefix&1]; n == 0 {
			return nil, depth
		}
		prefix >>= 1
		depth++
	}
}

// walk visits every node holding a segment, zero branches first.
func (t *bitTrie) walk(fn func(prefix uint64, depth uint, s *segment)) {
	type frame struct {
		n      int32
		prefix uint64
		depth  uint
	}
	stack := []frame{{}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := t.nodes[fr.n]
		if node.seg != nil {
			fn(fr.prefix, fr.depth, node.seg)
		}
		if c := node.child[1]; c != 0 {
			stack = append(stack, frame{c, fr.prefix | 1<<fr.depth, fr.depth + 1})
		}
		if c := node.child[0]; c != 0 {
			stack = append(stack, frame{c, fr.prefix, fr.depth + 1})
		}
	}
}
