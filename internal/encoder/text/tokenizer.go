// Package text encodes raw strings into fixed-dimension L2-normalised
// vectors: subword tokenisation, a transformer forward pass and
// attention-mask-weighted mean pooling.
package text

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

// Special token surface forms the vocabulary must contain.
const (
	TokenCLS = "[CLS]"
	TokenSEP = "[SEP]"
	TokenPAD = "[PAD]"
	TokenUNK = "[UNK]"
)

// DefaultMaxSeqLen is the default fixed sequence length.
const DefaultMaxSeqLen = 128

// minSeqLen leaves room for [CLS], [SEP] and at least one content token.
const minSeqLen = 3

// continuation is the WordPiece subword prefix.
const continuation = "##"

// Tokenizer performs vocabulary-driven greedy longest-match-first subword
// splitting with a designated unknown fallback.
type Tokenizer struct {
	vocab     map[string]int64
	maxSeqLen int

	clsID int64
	sepID int64
	padID int64
	unkID int64
}

// NewTokenizer loads a vocabulary file (one token per line). A missing
// file or missing special tokens is fatal.
func NewTokenizer(vocabPath string, maxSeqLen int) (*Tokenizer, error) {
	f, err := os.Open(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingVocabulary, vocabPath)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(f)
	var id int64
	for scanner.Scan() {
		token := strings.TrimRight(scanner.Text(), "\r\n")
		if token == "" {
			continue
		}
		if _, ok := vocab[token]; !ok {
			vocab[token] = id
			id++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}

	return newTokenizerFromVocab(vocab, maxSeqLen)
}

// newTokenizerFromVocab validates specials and builds the tokenizer.
func newTokenizerFromVocab(vocab map[string]int64, maxSeqLen int) (*Tokenizer, error) {
	if maxSeqLen <= 0 {
		maxSeqLen = DefaultMaxSeqLen
	}
	if maxSeqLen < minSeqLen {
		maxSeqLen = minSeqLen
	}

	t := &Tokenizer{vocab: vocab, maxSeqLen: maxSeqLen}
	for _, s := range []struct {
		token string
		dst   *int64
	}{
		{TokenCLS, &t.clsID},
		{TokenSEP, &t.sepID},
		{TokenPAD, &t.padID},
		{TokenUNK, &t.unkID},
	} {
		id, ok := vocab[s.token]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingSpecialToken, s.token)
		}
		*s.dst = id
	}
	return t, nil
}

// MaxSeqLen returns the fixed sequence length.
func (t *Tokenizer) MaxSeqLen() int {
	return t.maxSeqLen
}

// Encode frames text as [CLS] tokens... [SEP], truncated or padded to the
// fixed length, and returns token ids plus the attention mask marking
// real positions. An empty string yields just [CLS][SEP] and padding.
func (t *Tokenizer) Encode(text string) (ids, mask []int64) {
	tokens := t.tokenize(text)

	// Reserve room for [CLS] and [SEP].
	if len(tokens) > t.maxSeqLen-2 {
		tokens = tokens[:t.maxSeqLen-2]
	}

	ids = make([]int64, t.maxSeqLen)
	mask = make([]int64, t.maxSeqLen)

	pos := 0
	ids[pos], mask[pos] = t.clsID, 1
	pos++
	for _, tok := range tokens {
		ids[pos], mask[pos] = tok, 1
		pos++
	}
	ids[pos], mask[pos] = t.sepID, 1
	pos++
	for ; pos < t.maxSeqLen; pos++ {
		ids[pos], mask[pos] = t.padID, 0
	}
	return ids, mask
}

// tokenize normalises text and splits each word into subword ids.
func (t *Tokenizer) tokenize(text string) []int64 {
	var ids []int64
	for _, word := range splitWords(normalise(text)) {
		ids = append(ids, t.wordpiece(word)...)
	}
	return ids
}

// wordpiece splits one word greedily, longest match first, prefixing
// continuations with "##". An unmatched word becomes a single [UNK].
func (t *Tokenizer) wordpiece(word string) []int64 {
	var ids []int64
	start := 0
	for start < len(word) {
		end := len(word)
		var match int64 = -1
		for end > start {
			sub := word[start:end]
			if start > 0 {
				sub = continuation + sub
			}
			if id, ok := t.vocab[sub]; ok {
				match = id
				break
			}
			end--
		}
		if match < 0 {
			return []int64{t.unkID}
		}
		ids = append(ids, match)
		start = end
	}
	return ids
}

// normalise applies Unicode canonical normalisation and case folding.
func normalise(text string) string {
	return strings.ToLower(norm.NFKC.String(text))
}

// splitWords breaks text on whitespace and isolates punctuation runes as
// standalone words.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}
