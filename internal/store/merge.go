package store

// Merge combines src into dst field by field and returns the result. Nested
// objects merge recursively; scalars and arrays present in src overwrite the
// stored value. Fields absent from src keep their previous value. Neither
// input map is mutated.
func Merge(dst, src Document) Document {
	out := make(Document, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		prev, ok := out[k]
		if !ok {
			out[k] = v
			continue
		}
		prevMap, prevIsMap := prev.(map[string]any)
		srcMap, srcIsMap := v.(map[string]any)
		if prevIsMap && srcIsMap {
			out[k] = Merge(prevMap, srcMap)
			continue
		}
		out[k] = v
	}
	return out
}
