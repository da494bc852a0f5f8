// Package snaphu locates and runs the SNAPHU unwrapping command that the SNAP
// export step leaves behind.
//
// The export writes a work directory per run and a snaphu.conf whose header
// carries the exact command line as a comment, e.g.
//
//	#   snaphu -f snaphu.conf Phase_ifg_VV.snaphu.img 2001
//
// Discovery picks the most recently modified work directory, extracts the
// first such command, and runs it from that directory. The command text comes
// from the file verbatim and is executed through the shell. Every failure here
// is advisory: DiscoverAndRun logs and reports, it never returns an error.
package snaphu
