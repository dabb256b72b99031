// Package textutil compares short titles by token overlap.
//
// A Fingerprint is the term-frequency vector of a title's lowercase letter and
// digit runs. Digits are kept so that "Portal" and "Portal 2" stay distinct;
// cosine similarity between two fingerprints scores how alike the titles are.
package textutil
