package common

// ItemList locates the record array in a decoded provider payload by
// trying candidate keys in order, looking one level into "data" wrappers
// as well. A payload with no recognizable array yields nil, not an error.
func ItemList(raw map[string]any, keys ...string) []map[string]any {
	if raw == nil {
		return nil
	}
	for _, key := range keys {
		if items := asItemList(raw[key]); items != nil {
			return items
		}
	}
	if wrapper, ok := raw["data"].(map[string]any); ok {
		for _, key := range keys {
			if items := asItemList(wrapper[key]); items != nil {
				return items
			}
		}
	}
	return nil
}

func asItemList(value any) []map[string]any {
	entries, ok := value.([]any)
	if !ok {
		return nil
	}
	items := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		if item, ok := entry.(map[string]any); ok {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil
	}
	return items
}
