// Copyright (c) 2026, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package topographica is the overall repository for the connection field
projection engine of topographic map models implemented in the Go language.

This top-level of the repository has no functional code -- everything is organized
into the following sub-repositories:

* sheetcoords: the continuous sheet coordinate system, bounding boxes and the
matrix slices that map regions of a sheet onto its units.

* patgen: pattern generators (Gaussians, disks, rectangles, noise) used for the
initial weights and the shape masks of connection fields.

* cf: the core implementation: sheets, connection fields, dense CF projections,
the response / learning / output function families with their optimized forms,
joint normalization of projection groups, CF resizing, views and weights
save / load.

* sparse: a projection that stores only the nonzero weights of each CF, with
pruning and sprout / retract structural plasticity.

* learnfn, respfn, xferfn: additional learning, response and transfer functions,
e.g., BCM, trace and homeostatic threshold rules.

* fffb, nxx1: feedforward / feedback pooled inhibition and the noisy x/(x+1)
response function, usable as sheet output functions.

* examples: these actually compile into runnable programs. examples/gcal is a
small Retina / LGN / V1 map and examples/bench times dense and sparse
projections.
*/
package topographica
