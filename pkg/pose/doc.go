// Package pose defines mannequin poses and their anchor regions.
//
// A pose describes where garments attach to the mannequin: a set of
// normalized boxes (chest, waist, hip, head and the two shoes), the neck
// point, the hem line and a default z-order per layer category. All
// coordinates are fractions of the mannequin bounding box, so a pose is
// independent of the size the mannequin is rendered at.
//
// # Resolving anchors
//
// [Anchors.Resolve] maps a layer [Category] to the box a garment is centered
// on:
//
//	front := pose.FrontV1()
//	box, ok := front.Resolve(pose.Outerwear) // chest box, true
//	_, ok = front.Resolve(pose.Footwear)     // false: use ShoeBoxes
//
// Footwear is the only dual placement; it is laid out once per shoe box.
//
// # Registry
//
// A [Registry] holds the poses known to a process. [DefaultRegistry] contains
// the canonical "front_v1" pose; further poses can be loaded from TOML with
// [LoadFile] and added with [Registry.Register]. Registered poses are never
// modified.
package pose
