// Package lexical implements the sparse side of hybrid retrieval:
// tokenisation, light stemming, BM25 scoring over a candidate set and
// sparse term-weight vectors.
package lexical
