package retrieval

import "strings"

var stopWords = map[string]struct{}{
	"what": {}, "is": {}, "the": {}, "a": {}, "an": {}, "how": {}, "does": {}, "do": {}, "can": {}, "i": {},
	"explain": {}, "tell": {}, "me": {}, "about": {}, "in": {}, "for": {}, "to": {}, "of": {}, "and": {},
}

// domainTerms are never dropped from keyword queries.
var domainTerms = map[string]struct{}{
	"django": {}, "model": {}, "models": {}, "view": {}, "views": {}, "url": {}, "urls": {},
	"template": {}, "form": {}, "forms": {}, "admin": {}, "settings": {}, "migration": {},
	"queryset": {}, "orm": {}, "field": {}, "fields": {}, "foreignkey": {}, "manytomany": {},
	"charfield": {}, "integerfield": {}, "models.py": {}, "views.py": {}, "urls.py": {},
}

type expansion struct {
	triggers []string
	terms    []string
}

var semanticExpansions = []expansion{
	{triggers: []string{"models.py", "model file"}, terms: []string{"django models", "database schema", "ORM", "model fields"}},
	{triggers: []string{"views.py", "view file"}, terms: []string{"django views", "request handling", "response"}},
	{triggers: []string{"urls.py", "url file"}, terms: []string{"django urls", "url routing", "path"}},
	{triggers: []string{"forms.py", "form file"}, terms: []string{"django forms", "form validation", "ModelForm"}},
}

const genericDomainTerm = "django"

// Query holds the three renderings of a user query.
type Query struct {
	Original string
	Semantic string
	Keyword  string
}

func PreprocessQuery(query string) Query {
	return Query{Original: query, Semantic: expandSemantic(query), Keyword: extractKeywords(query)}
}

func expandSemantic(query string) string {
	lowered := strings.ToLower(query)
	var expanded []string
	for _, candidate := range semanticExpansions {
		for _, trigger := range candidate.triggers {
			if strings.Contains(lowered, trigger) {
				expanded = append(expanded, candidate.terms...)
				break
			}
		}
	}
	if len(expanded) == 0 && !strings.Contains(lowered, genericDomainTerm) {
		expanded = append(expanded, genericDomainTerm)
	}
	if len(expanded) == 0 {
		return query
	}
	return query + " " + strings.Join(expanded, " ")
}

func extractKeywords(query string) string {
	var keywords []string
	for _, token := range tokenize(query) {
		_, domain := domainTerms[token]
		_, stop := stopWords[token]
		if domain || !stop {
			keywords = append(keywords, token)
		}
	}
	if len(keywords) == 0 {
		return query
	}
	return strings.Join(keywords, " ")
}

func tokenize(text string) []string { return strings.Fields(strings.ToLower(text)) }
