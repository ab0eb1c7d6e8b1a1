package cubemap

/*

# Pages on a cube-sphere

The sphere is covered by the six faces of a cube, each face the root of a
quadtree. Every node of the six trees is a page: a square tile of n x n
samples. Pages are identified by a single integer, the page address, which
numbers the nodes breadth first across all six trees:

	level 0:  0 1 2 3 4 5                 the six faces
	level 1:  6 .. 29                     the 4 children of each face
	level 2:  30 .. 125
	...

The addressing is entirely arithmetic. The children of page x are

	6 + 4x + k,  k in 0..3

and the parent of a non root page x is (x - 6) / 4. The quadrant k carries
the position of the child in its parent, (rowbit << 1) | colbit, so the
children are ordered

	+----+----+
	| 0  | 1  |    NW NE
	+----+----+
	| 2  | 3  |    SW SE
	+----+----+

Because of this, level l begins at address 2(4^l - 1) and holds 6 * 4^l
pages, and a pyramid complete to depth D has 2(4^(D+1) - 1) pages. The row
and column of a page within its face are recovered from the quadrant bits
collected while walking to the root.

# Faces and orientation

Faces are numbered 0:+X 1:-X 2:+Y 3:-Y 4:+Z 5:-Z. Each face has a right
handed local frame (eX, eY, eZ) with eZ the outward normal. Columns increase
along eX and rows increase along -eY, so row 0 is the top of the face.

Where two faces share an edge their grids are related by one of a small set of
rotations. The same rotation maps page neighbours across the edge and maps
sample positions when copying ghost borders, so there is exactly one constant
table, indexed [from face][to face], holding it. Opposite faces share no edge
and their entry is None.

# Geometry

Positions on a face are mapped to directions with an equiangular remap,

	s = x * pi/2 - pi/4,  t = y * pi/2 - pi/4
	v = normalize(tan(s) eX - tan(t) eY + eZ)

which spreads samples far more evenly than the plain gnomonic projection.
Locate is the exact inverse.
*/
