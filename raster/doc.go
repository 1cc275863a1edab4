// Package raster turns texture data into images.
//
// Decode converts the first image of a texture from an engine pixel format
// to NRGBA through a registry of format decoders. Images come out in the
// engine's stored row order, bottom row first.
//
// Cut extracts a sprite from a decoded texture: it undoes atlas downscaling
// and packing rotation, clears pixels outside a tight mesh, and returns the
// sprite upright. ApplyMask moves a separate alpha texture into a color
// image's alpha channel.
package raster
