// Package tokenizer wraps the MeCab morphological analyzer and turns its
// output into transcript tokens.
//
// The mecab binary is invoked with segment text on stdin and its default
// output format is parsed line by line. Parsing tolerates short feature
// lists so alternate dictionaries with fewer columns still tokenize.
package tokenizer
