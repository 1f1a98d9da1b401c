package llm

import "strings"

// DeltaType tells answer text apart from model reasoning.
type DeltaType string

const (
	DeltaText      DeltaType = "text-delta"
	DeltaReasoning DeltaType = "reasoning-delta"
)

type Delta struct {
	Type DeltaType `json:"type"`
	Text string    `json:"delta"`
}

// tagSplitter separates <tag>...</tag> spans from the surrounding text of a
// fragmented stream. Tags may be split across fragments.
type tagSplitter struct {
	open, close string
	inside      bool
	pending     string
}

func newTagSplitter(tag string) *tagSplitter {
	return &tagSplitter{open: "<" + tag + ">", close: "</" + tag + ">"}
}

func (s *tagSplitter) kind() DeltaType {
	if s.inside {
		return DeltaReasoning
	}
	return DeltaText
}

func (s *tagSplitter) push(fragment string) []Delta {
	var out []Delta
	emit := func(text string) {
		if text != "" {
			out = append(out, Delta{Type: s.kind(), Text: text})
		}
	}

	buf := s.pending + fragment
	s.pending = ""
	for {
		tag := s.open
		if s.inside {
			tag = s.close
		}
		if i := strings.Index(buf, tag); i >= 0 {
			emit(buf[:i])
			buf = buf[i+len(tag):]
			s.inside = !s.inside
			continue
		}
		hold := partialSuffix(buf, tag)
		emit(buf[:len(buf)-hold])
		s.pending = buf[len(buf)-hold:]
		return out
	}
}

// flush emits whatever was held back waiting for a tag to complete.
func (s *tagSplitter) flush() []Delta {
	if s.pending == "" {
		return nil
	}
	d := Delta{Type: s.kind(), Text: s.pending}
	s.pending = ""
	return []Delta{d}
}

// partialSuffix returns the length of the longest suffix of s that is a
// proper prefix of tag.
func partialSuffix(s, tag string) int {
	for k := min(len(tag)-1, len(s)); k > 0; k-- {
		if strings.HasSuffix(s, tag[:k]) {
			return k
		}
	}
	return 0
}
