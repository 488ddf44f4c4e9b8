package domain

// NavigationTiming holds timestamps (ms relative to navigation start) of a page load.
// Zero means the host did not report the mark.
type NavigationTiming struct {
	URL string

	FetchStart                 float64
	DomainLookupStart          float64
	DomainLookupEnd            float64
	ConnectStart               float64
	ConnectEnd                 float64
	SecureConnectionStart      float64
	RequestStart               float64
	ResponseStart              float64
	ResponseEnd                float64
	DOMInteractive             float64
	DOMContentLoadedEventStart float64
	DOMContentLoadedEventEnd   float64
	DOMComplete                float64
	LoadEventEnd               float64

	FirstPaint             float64
	FirstContentfulPaint   float64
	LargestContentfulPaint float64
}

// PageSnapshot is what a page inspector reports about the rendered view.
type PageSnapshot struct {
	URL             string
	ViewportWidth   int
	ViewportHeight  int
	BackgroundColor string
	ElementCount    int
	HasText         bool
	HasImages       bool

	// ClassNames and DataAttributes list every class and data-* attribute present.
	ClassNames     []string
	DataAttributes []string
	// ElementBackgrounds are the computed background colors of the first elements.
	ElementBackgrounds []string
	// Animations are the keyframe rule texts found in loaded stylesheets.
	Animations []string
}
