package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeText(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text string
		out  []string
	}{
		{text: "", out: []string{}},
		{text: "Hello, World!", out: []string{"hello", "world"}},
		{text: "Gdańsk", out: []string{"gdansk"}},
		{text: "BUY NOW!!! limited-offer", out: []string{"buy", "now", "limited", "offer"}},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, TokenizeText(fix.text))
	}
}

func TestSlugify(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("killmyself", Slugify("k i l l  m y s e l f"))
	assert.Equal("hello", Slugify("He.l-l_o"))
	assert.Equal("", Slugify("!!!"))
}

func TestTokenInSet(t *testing.T) {
	assert := assert.New(t)

	keywords := []string{
		"example",
		"bunch",
	}

	assert.True(TokenInSet("example", keywords))
	assert.False(TokenInSet("Example", keywords))
	assert.False(TokenInSet("elephant", keywords))
}

func TestAnyTokenInSet(t *testing.T) {
	assert := assert.New(t)

	set := []string{"damn", "hell"}
	tok, ok := AnyTokenInSet(TokenizeText("well DAMN, that hurt"), set)
	assert.True(ok)
	assert.Equal("damn", tok)

	// word-boundary: "shellfish" must not match "hell"
	_, ok = AnyTokenInSet(TokenizeText("I love shellfish"), set)
	assert.False(ok)
}

func TestContainsAnyPhrase(t *testing.T) {
	assert := assert.New(t)

	phrases := []string{"kill myself", "want to die"}
	p, ok := ContainsAnyPhrase("sometimes I Want To Die", phrases)
	assert.True(ok)
	assert.Equal("want to die", p)

	_, ok = ContainsAnyPhrase("I want to diet", phrases)
	assert.True(ok) // substring semantics are intentionally aggressive

	_, ok = ContainsAnyPhrase("feeling great today", phrases)
	assert.False(ok)
}

func TestExtractURLs(t *testing.T) {
	assert := assert.New(t)

	urls := ExtractURLs("check https://example.com and also bit.ly/abc now")
	assert.Equal(2, len(urls))
	assert.Equal([]string(nil), ExtractURLs("no links here"))
}
