package vocab

import "github.com/example/go-seqprep/internal/corpus"

// CountTags counts every tag in c.
func CountTags(c corpus.Corpus) *Counter {
	counter := NewCounter()
	for _, s := range c {
		for _, p := range s {
			counter.Add(p.Tag)
		}
	}

	return counter
}

// BuildTags builds the tag vocabulary of c.
func BuildTags(c corpus.Corpus) *Mapping {
	return Build(CountTags(c))
}
