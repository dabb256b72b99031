// Package language normalizes the language settings used for description
// translation. Codes, ISO 639-2 forms, and English names all resolve to the
// two-letter code the translation service expects.
package language
