package crypto

import (
	"bufio"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/hkdf"
)

const (
	fingerprintSize    = 32
	fingerprintEntropy = 64
)

// ErrHashTooSmall is returned when a word list needs more entropy than the hash holds.
var ErrHashTooSmall = errors.New("output entropy of hash function is too small")

// Fingerprint returns the word phrase a user compares to confirm a public key.
//
// The key is hashed with SHA-256, expanded with HKDF (info = material, usually
// the user id) to 32 bytes and rendered with HashPhrase. A nil word list
// renders hex groups instead.
func Fingerprint(material string, pub []byte, words []string) ([]string, error) {
	sum := sha256.Sum256(pub)
	r := hkdf.Expand(sha256.New, sum[:], []byte(material))
	out := make([]byte, fingerprintSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	if len(words) == 0 {
		words = HexWords()
	}
	return HashPhrase(out, words)
}

// HashPhrase encodes hash as words with at least 64 bits of entropy by
// repeated division of the hash, read as a big-endian integer, by len(words).
func HashPhrase(hash []byte, words []string) ([]string, error) {
	if len(words) < 2 {
		return nil, errors.New("word list too short")
	}
	perWord := math.Log2(float64(len(words)))
	n := int(math.Ceil(fingerprintEntropy / perWord))
	if float64(n)*perWord > float64(len(hash)*4) {
		return nil, ErrHashTooSmall
	}

	num := new(big.Int).SetBytes(hash)
	base := big.NewInt(int64(len(words)))
	rem := new(big.Int)
	phrase := make([]string, 0, n)
	for ; n > 0; n-- {
		num.DivMod(num, base, rem)
		phrase = append(phrase, words[rem.Int64()])
	}
	return phrase, nil
}

// HexWords is the fallback list: every 4-digit hex token, 16 bits per word.
var HexWords = sync.OnceValue(func() []string {
	w := make([]string, 1<<16)
	for i := range w {
		w[i] = fmt.Sprintf("%04x", i)
	}
	return w
})

// LoadWordList reads one word per line. Diceware lines ("11111<TAB>abacus")
// keep only the last field; blank lines and '#' comments are skipped.
func LoadWordList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadWordList(f)
}

// ReadWordList is LoadWordList for an open reader.
func ReadWordList(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		words = append(words, fields[len(fields)-1])
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(words) < 2 {
		return nil, errors.New("word list too short")
	}
	return words, nil
}
