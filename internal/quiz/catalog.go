package quiz

import "strings"

// DefaultLanguage is used when a request names no language or an unknown one.
const DefaultLanguage = "python"

// Topic is a quiz subject with the probability of asking for a code snippet.
type Topic struct {
	Name     string
	CodeProb float64
}

// Language is a supported quiz language with its topic pool.
type Language struct {
	ID          string
	DisplayName string
	Topics      []Topic
}

// Languages is the supported catalog in display order.
var Languages = []Language{
	{"kotlin", "Kotlin", []Topic{
		{"functions and lambdas", 0.9},
		{"classes and objects", 0.7},
		{"coroutines", 0.9},
		{"collections", 0.8},
		{"null safety", 0.7},
		{"extension functions", 0.9},
		{"sealed classes", 0.8},
		{"data classes", 0.7},
		{"scope functions", 0.9},
		{"delegation", 0.8},
	}},
	{"java", "Java", []Topic{
		{"object-oriented programming", 0.8},
		{"collections framework", 0.8},
		{"stream API", 0.9},
		{"exception handling", 0.7},
		{"generics", 0.8},
		{"lambda expressions", 0.9},
		{"multithreading", 0.8},
		{"interfaces and abstract classes", 0.7},
		{"design patterns", 0.6},
		{"JVM concepts", 0.5},
	}},
	{"python", "Python", []Topic{
		{"functions and decorators", 0.9},
		{"list comprehensions", 0.8},
		{"classes and inheritance", 0.7},
		{"async/await", 0.9},
		{"data structures", 0.8},
		{"exception handling", 0.6},
		{"modules and packages", 0.7},
		{"lambda functions", 0.9},
		{"generators", 0.8},
		{"context managers", 0.9},
	}},
	{"javascript", "JavaScript", []Topic{
		{"promises and async/await", 0.9},
		{"closures", 0.8},
		{"prototypes and inheritance", 0.7},
		{"event handling", 0.8},
		{"array methods", 0.9},
		{"destructuring", 0.8},
		{"modules", 0.7},
		{"arrow functions", 0.9},
		{"DOM manipulation", 0.8},
		{"error handling", 0.6},
	}},
	{"typescript", "TypeScript", []Topic{
		{"type annotations", 0.8},
		{"interfaces", 0.7},
		{"generics", 0.8},
		{"decorators", 0.9},
		{"union and intersection types", 0.8},
		{"modules and namespaces", 0.7},
		{"advanced types", 0.8},
		{"type guards", 0.9},
		{"enums", 0.7},
		{"conditional types", 0.8},
	}},
	{"csharp", "C#", []Topic{
		{"LINQ", 0.9},
		{"async/await", 0.9},
		{"properties and indexers", 0.7},
		{"delegates and events", 0.8},
		{"generics", 0.8},
		{"nullable reference types", 0.7},
		{"pattern matching", 0.8},
		{"attributes", 0.7},
		{"records", 0.8},
		{"dependency injection", 0.6},
	}},
	{"cpp", "C++", []Topic{
		{"pointers and references", 0.9},
		{"templates", 0.8},
		{"smart pointers", 0.9},
		{"STL containers", 0.8},
		{"RAII", 0.7},
		{"virtual functions", 0.8},
		{"move semantics", 0.9},
		{"lambda expressions", 0.8},
		{"operator overloading", 0.7},
		{"memory management", 0.8},
	}},
	{"rust", "Rust", []Topic{
		{"ownership and borrowing", 0.9},
		{"pattern matching", 0.8},
		{"error handling", 0.8},
		{"traits", 0.8},
		{"lifetimes", 0.9},
		{"iterators", 0.8},
		{"async/await", 0.9},
		{"macros", 0.8},
		{"cargo and modules", 0.6},
		{"unsafe code", 0.7},
	}},
	{"go", "Go", []Topic{
		{"goroutines", 0.9},
		{"channels", 0.9},
		{"interfaces", 0.8},
		{"error handling", 0.7},
		{"slices and maps", 0.8},
		{"pointers", 0.8},
		{"structs and methods", 0.7},
		{"packages", 0.6},
		{"defer statement", 0.8},
		{"context package", 0.8},
	}},
	{"swift", "Swift", []Topic{
		{"optionals", 0.8},
		{"closures", 0.9},
		{"protocols", 0.8},
		{"generics", 0.8},
		{"property wrappers", 0.9},
		{"async/await", 0.9},
		{"error handling", 0.7},
		{"extensions", 0.8},
		{"enums with associated values", 0.8},
		{"memory management", 0.7},
	}},
}

var languagesByID = func() map[string]*Language {
	m := make(map[string]*Language, len(Languages))
	for i := range Languages {
		m[Languages[i].ID] = &Languages[i]
	}
	return m
}()

// LookupLanguage returns the catalog entry for id.
func LookupLanguage(id string) (*Language, bool) {
	l, ok := languagesByID[id]
	return l, ok
}

// LanguageIDs returns the supported language ids in catalog order.
func LanguageIDs() []string {
	ids := make([]string, len(Languages))
	for i, l := range Languages {
		ids[i] = l.ID
	}
	return ids
}

// NormalizeLanguage lower-cases and trims s, replacing unknown or empty
// values with fallback.
func NormalizeLanguage(s, fallback string) string {
	id := strings.ToLower(strings.TrimSpace(s))
	if _, ok := languagesByID[id]; ok {
		return id
	}
	return fallback
}

// DisplayName returns the human name for a language id, or "Programming".
func DisplayName(id string) string {
	if l, ok := languagesByID[id]; ok {
		return l.DisplayName
	}
	return "Programming"
}

// TopicsFor returns the topic pool for a language, falling back to the
// default language's pool.
func TopicsFor(id string) []Topic {
	if l, ok := languagesByID[id]; ok {
		return l.Topics
	}
	return languagesByID[DefaultLanguage].Topics
}
