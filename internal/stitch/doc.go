// Package stitch fuses one well's tile grid into mosaic planes: pairwise
// translation registration, global least-squares placement, and weighted
// per-page fusion.
//
// The engine runs four stages per well:
//
//   - layout: tile sequence number -> grid cell under snake or row order;
//     nominal canvas positions from tile size and overlap; neighbor pairs.
//   - register: exhaustive translation search around the nominal offset of
//     each adjacent pair, scored by Pearson correlation of the overlap
//     band on a middle reference page. Links below the regression
//     threshold or beyond the absolute displacement bound are rejected.
//   - optimize: per-axis least squares over surviving links (QR), the first
//     tile of each connected group anchored at nominal; the worst link is
//     dropped and the system re-solved while any residual exceeds the
//     max/avg displacement bound. Unlinked tiles sit at nominal.
//   - fuse: per-page accumulation under edge-ramp weights (linear), plain
//     averaging, or maximum intensity; normalized and materialized at the
//     input bit depth.
//
// Registration runs once on a middle reference page and its placement is
// applied to every page, so the channels and slices of one tile can never
// drift apart.
package stitch
