package ocr

import "errors"

// ErrNoEngines is returned when a Recognizer is built without any OCR engine.
var ErrNoEngines = errors.New("no ocr engines")

// ErrClosed is returned by Recognize after Close.
var ErrClosed = errors.New("recognizer closed")
