package jwt

type Claims interface{}

type Token struct {
	Raw string
}

type Parser struct{}

func (p *Parser) ParseUnverified(tokenString string, claims Claims) (*Token, []string, error) {
	return &Token{Raw: tokenString}, nil, nil
}

func (p *Parser) Parse(tokenString string) (*Token, error) {
	return &Token{Raw: tokenString}, nil
}
