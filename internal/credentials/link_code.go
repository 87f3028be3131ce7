package credentials

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Word lists for generating kid-friendly link codes
var adjectives = []string{
	"happy", "sunny", "brave", "bright", "cool", "swift", "clever", "jolly",
	"mighty", "super", "star", "wild", "funny", "lucky", "magic", "bouncy",
	"cheerful", "daring", "eager", "flying", "gentle", "hyper", "jazzy", "kindly",
	"lively", "merry", "noble", "perky", "quick", "royal", "snappy", "turbo",
}

var nouns = []string{
	"dragon", "tiger", "eagle", "dolphin", "panda", "lion", "wolf", "bear",
	"fox", "hawk", "owl", "phoenix", "unicorn", "rocket", "ninja", "wizard",
	"knight", "pirate", "robot", "astronaut", "hero", "champion", "explorer", "ranger",
	"reader", "captain", "genius", "comet", "thunder", "poet", "scribe", "author",
}

// GenerateLinkCode returns a code like "happy-dragon-4821" that a parent
// reads out to a student to link their accounts
func GenerateLinkCode() (string, error) {
	adjective, err := randomElement(adjectives)
	if err != nil {
		return "", err
	}

	noun, err := randomElement(nouns)
	if err != nil {
		return "", err
	}

	num, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%04d", adjective, noun, num.Int64()), nil
}

// NormalizeLinkCode lowercases and trims a code typed by a student
func NormalizeLinkCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// randomElement picks a random element from a string slice
func randomElement(slice []string) (string, error) {
	if len(slice) == 0 {
		return "", nil
	}

	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slice))))
	if err != nil {
		return "", err
	}

	return slice[num.Int64()], nil
}
