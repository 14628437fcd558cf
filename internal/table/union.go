package table

// Union is the merged schema across sources whose headers differ. Columns
// appear in first-seen declared order; equality is by normalized name, and
// the first source to contribute a column decides its display name.
type Union struct {
	Header Header
	byNorm map[string]int
}

func NewUnion() *Union {
	return &Union{byNorm: make(map[string]int)}
}

// Add folds one source header into the union and returns the mapping from
// that header's indexes to union indexes.
func (u *Union) Add(h Header) []int {
	mapping := make([]int, h.Len())
	for i, name := range h.Names {
		key := normName(name)
		if key == "" {
			// Unnamed columns keep positional identity only within their
			// own source; give each a fresh union slot.
			mapping[i] = u.append(name)
			continue
		}
		if j, ok := u.byNorm[key]; ok {
			mapping[i] = j
			continue
		}
		j := u.append(name)
		u.byNorm[key] = j
		mapping[i] = j
	}
	return mapping
}

func (u *Union) append(name string) int {
	u.Header.Names = append(u.Header.Names, name)
	return len(u.Header.Names) - 1
}

// Realign projects a source row onto the union schema using the mapping
// returned by Add. Missing trailing fields read as empty; excess fields
// beyond the source header are dropped (they correlate with no name).
func Realign(fields []string, mapping []int, unionWidth int) []string {
	out := make([]string, unionWidth)
	for i, j := range mapping {
		if i < len(fields) {
			out[j] = fields[i]
		}
	}
	return out
}
