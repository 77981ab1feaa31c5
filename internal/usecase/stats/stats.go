package stats

import (
	"tskit/internal/domain"
)

type Counts struct {
	Context    string `json:"context,omitempty"`
	Finished   int    `json:"finished"`
	Unfinished int    `json:"unfinished"`
	Stale      int    `json:"stale"`
}

// Active is the number of messages still present in the sources.
func (c Counts) Active() int { return c.Finished + c.Unfinished }

// Percent is the finished share of active messages, 100 when there are none.
func (c Counts) Percent() float64 {
	if c.Active() == 0 {
		return 100
	}
	return float64(c.Finished) * 100 / float64(c.Active())
}

func (c *Counts) add(s domain.Status) {
	switch {
	case s.Stale():
		c.Stale++
	case s == domain.StatusFinished:
		c.Finished++
	default:
		c.Unfinished++
	}
}

type Summary struct {
	Language string   `json:"language"`
	Total    Counts   `json:"total"`
	Contexts []Counts `json:"contexts"`
}

// Compute counts messages per context in document order. Contexts that
// repeat a name are folded into the first one.
func Compute(c *domain.Catalog) Summary {
	s := Summary{Language: c.Language}
	idx := map[string]int{}
	for _, ctx := range c.Contexts {
		i, ok := idx[ctx.Name]
		if !ok {
			i = len(s.Contexts)
			idx[ctx.Name] = i
			s.Contexts = append(s.Contexts, Counts{Context: ctx.Name})
		}
		for _, m := range ctx.Messages {
			s.Contexts[i].add(m.Status)
			s.Total.add(m.Status)
		}
	}
	return s
}
