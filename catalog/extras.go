package catalog

// energyExtras is the hard-coded set of energy DIs that fall outside
// the regular sub-class x item grid (combined/reverse/quadrant
// energies and the like). Each is synthesized for every settlement
// period the same way the regular grid entries are.
var energyExtras = []uint32{
	0x00800000, 0x00810000, 0x00820000, 0x00830000, 0x00840000, 0x00850000, 0x00860000,
	0x00150000, 0x00160000, 0x00170000, 0x00180000, 0x00190000, 0x001A0000, 0x001B0000,
	0x001C0000, 0x001D0000, 0x001E0000,
	0x00940000, 0x00950000, 0x00960000, 0x00970000, 0x00980000, 0x00990000, 0x009A0000,
	0x00290000, 0x002A0000, 0x002B0000, 0x002C0000, 0x002D0000, 0x002E0000, 0x002F0000,
	0x00300000, 0x00310000, 0x00320000,
	0x00A80000, 0x00A90000, 0x00AA0000, 0x00AB0000, 0x00AC0000, 0x00AD0000, 0x00AE0000,
	0x003D0000, 0x003E0000, 0x003F0000, 0x00400000, 0x00410000, 0x00420000, 0x00430000,
	0x00440000, 0x00450000, 0x00460000,
	0x00BC0000, 0x00BD0000, 0x00BE0000, 0x00BF0000, 0x00C00000, 0x00C10000, 0x00C20000,
}

// demandExtras is the analogous hard-coded set of 30 demand DIs.
var demandExtras = []uint32{
	0x01150000, 0x01160000, 0x01170000, 0x01180000, 0x01190000, 0x011A0000, 0x011B0000,
	0x011C0000, 0x011D0000, 0x011E0000,
	0x01290000, 0x012A0000, 0x012B0000, 0x012C0000, 0x012D0000, 0x012E0000, 0x012F0000,
	0x01300000, 0x01310000, 0x01320000,
	0x013D0000, 0x013E0000, 0x013F0000, 0x01400000, 0x01410000, 0x01420000, 0x01430000,
	0x01440000, 0x01450000, 0x01460000,
}
