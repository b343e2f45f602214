// Package dataset assembles training examples for the sequence rearrangement
// model: per-object point clouds, goal pose targets, and the tokenized
// structure description, plus batching of finished examples.
package dataset

// TokenRole is the semantic role of a sentence token, matching the roles the
// tokenizer vocabulary is built over.
type TokenRole string

// Roles of the structure-description tokens.
const (
	RoleShape     TokenRole = "shape"
	RoleRotation  TokenRole = "rotation"
	RolePositionX TokenRole = "position_x"
	RolePositionY TokenRole = "position_y"
	RoleRadius    TokenRole = "radius"
)

// padWord is the word of the explicit padding token; it has no role.
const padWord = "PAD"

// Token is one (value, role) entry of the structure description. Word tokens
// carry a word (shape names, PAD); scalar tokens carry a value.
type Token struct {
	Word  string
	Value float64
	Role  TokenRole
}

// WordToken returns a token carrying a vocabulary word.
func WordToken(word string, role TokenRole) Token {
	return Token{Word: word, Role: role}
}

// ValueToken returns a token carrying a scalar parameter.
func ValueToken(v float64, role TokenRole) Token {
	return Token{Value: v, Role: role}
}

// PadToken returns the sentence padding sentinel.
func PadToken() Token {
	return Token{Word: padWord}
}

// IsPad reports whether the token is the padding sentinel.
func (t Token) IsPad() bool {
	return t.Word == padWord && t.Role == ""
}

// Tokenizer maps sentence tokens to integer ids. The vocabulary and the
// discretization of scalar values are owned by the model side.
type Tokenizer interface {
	Tokenize(t Token) (int64, error)
}
