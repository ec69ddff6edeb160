/*
Package codec reads and writes the index document.

An index is stored as one compact JSON object. Field names are short and
fixed; any change to them bumps Version. Empty fields are omitted.

	v    string   document version, "atlas/1"
	m    object   build metadata
	     r    project root
	     t    build time, RFC 3339 UTC
	     id   build ID
	     fp   content fingerprint of the scanned tree
	     rev  VCS revision, when the root is a git work tree
	f    array    file table, position is the file number
	     p    path relative to the root, slash separated
	     l    language
	     h    content hash
	     pu   inferred file purpose
	     s    symbol numbers defined in the file, extraction order
	     i    imports: p path, a module alias, n [[name, local]], ln line,
	          t target file numbers (absent for external imports)
	     d    file numbers this file depends on
	     sec  document section headers
	s    array    symbol table, position is the symbol number
	     n    name
	     c    container (class, module or receiver type)
	     k    "method" for methods, absent for functions
	     f    declaring file number
	     ln   line
	     sig  signature
	     pa   parameters as [name] or [name, type]
	     r    return type
	     doc  first doc line
	     ca   callee symbol numbers, ascending
	     cf   one confidence letter per callee: l local, i import,
	          g global, a ambiguous
	     cn   candidate counts per callee, present only when one differs from 1
	     u    unresolved call names
	     cb   caller symbol numbers, ascending
	dp   object   directory -> purpose
	tr   array    directory listing: p path ("." is the root), n direct file count
	w    array    scan and extraction warnings: file, language, severity, message
*/
package codec
