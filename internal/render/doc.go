// Package render turns rankings and matches into the text blocks posted
// in discord: an aligned standings table and a list of fixtures with
// team emotes.
package render
