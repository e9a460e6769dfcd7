package models

// Usage reports token consumption for a completion.
type Usage struct {
	InputTokens      int  `json:"input_tokens"`
	OutputTokens     int  `json:"output_tokens"`
	CacheReadTokens  *int `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens *int `json:"cache_write_tokens,omitempty"`
}

// Total is the sum of input and output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Add combines two usage reports field by field.
func (u Usage) Add(other Usage) Usage {
	sum := Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
	if u.CacheReadTokens != nil || other.CacheReadTokens != nil {
		n := deref(u.CacheReadTokens) + deref(other.CacheReadTokens)
		sum.CacheReadTokens = &n
	}
	if u.CacheWriteTokens != nil || other.CacheWriteTokens != nil {
		n := deref(u.CacheWriteTokens) + deref(other.CacheWriteTokens)
		sum.CacheWriteTokens = &n
	}
	return sum
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
