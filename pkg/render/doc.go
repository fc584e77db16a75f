// Package render draws a laid-out scene as SVG, PNG or WebP.
//
// # Overview
//
// A [Frame] is an immutable snapshot of a scene: the stage size, the
// sprites in draw order, and optionally the gizmo overlay of the selected
// garment and the debug overlay (anchor boxes, neck point, hem line, grid).
//
//	frame := render.FromScene(sc, &overlay)
//	svg := render.RenderSVG(frame, render.WithEmbed(loader))
//	png, err := render.RenderPNG(frame, loader)
//
// # SVG
//
// [RenderSVG] emits one <image> per sprite with the sprite's stage
// transform, so the browser does the resampling. By default image hrefs
// are the raw image references; [WithEmbed] inlines them as data URIs, and
// [WithHref] maps them through a resolver.
//
// # Raster
//
// [RenderImage] composites the sprites with their affine transforms using
// golang.org/x/image/draw. [RenderPNG] and [RenderWebP] encode the result.
// Sprites whose image is missing from the [ImageSource] are left out.
package render
