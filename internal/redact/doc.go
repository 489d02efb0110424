// Package redact conceals chosen containers and undoes it.
//
// Every effect is recorded on the element itself by a marker class, so a
// mark is durable evidence that a container was handled. Applying to a
// marked container does nothing; at most one mark exists per element.
// Clear removes every mark in one pass.
//
// The actuator writes only its own vocabulary: marker classes, pixelate
// overlays, one injected style element and, in replace mode, the text of
// matching text nodes. It never removes or moves page content.
package redact
