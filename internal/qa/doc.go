// Package qa answers questions from a closed Q&A corpus.
//
// Engine.Answer runs a short decision pipeline per request:
//
//  1. an exact lookup on the strictly normalized question;
//  2. embedding the question and fetching the nearest corpus questions;
//  3. lexical scoring of every candidate against the question;
//  4. early rejection below MinLexical and early acceptance at LexicalStrong;
//  5. reranking lexical neighbours by a weighted vector+lexical score
//     against a threshold capped at LexicalStrong.
//
// Only embedding and retrieval failures are returned as errors. Every other
// outcome, including "no answer", is a Response.
package qa
