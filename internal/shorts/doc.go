// Package shorts assembles narrated visual segments over a sampled background
// video into a single vertical short.
package shorts
