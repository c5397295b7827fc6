package tokenizer

// englishStopwords is a small, fixed list of high-frequency English
// function words. Deliberately short: the index already suppresses
// very common terms at query time via idf clamping, so this list only
// needs to catch the words common enough to bloat shard sizes.
var englishStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {},
	"is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "was": {}, "were": {}, "will": {},
	"with": {},
}
