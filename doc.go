// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
veild maintains a client-side registry of onion routers written in Go.

It keeps a mutex-guarded list of router descriptors folded in from fetched
directory documents, tracks which routers are believed to be running, selects
directory servers and exit routers at random, and prunes descriptors that have
grown too old.  Directory parsing and signature verification happen upstream;
veild consumes decoded descriptors.

The default options are sane for most users.  This means veild will work 'out
of the box' for most users.  However, there are also a number of flags that
can be used to control it.

Usage:

	veild [OPTIONS]

Application Options:

	-V, --version         Display version information and exit
	    --appdata=        Path to application home directory
	    --authoritative   Act as an authoritative directory and persist raw
	                      router descriptors
	-d, --debuglevel=     Logging level for all subsystems {trace, debug,
	                      info, warn, error, critical} -- You may also specify
	                      <subsystem>=<level>,<subsystem2>=<level>,... to set
	                      the log level for individual subsystems -- Use show
	                      to list available subsystems
	    --ignoreversion   Do not exit when the directory does not list this
	                      software version as recommended
	    --logdir=         Directory to log output
	    --nofilelogging   Disable file logging
	    --resolvetimeout= Maximum duration of a single hostname resolution
	    --routerfile=     Path to a JSON file of seed dirservers used instead
	                      of the built-in list

Help Options:

	-h, --help            Show this help message
*/
package main
