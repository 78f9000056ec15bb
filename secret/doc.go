// Package secret resolves credential values referenced from configuration,
// so store passwords and signing keys never live in config literals.
//
// Values go through strict environment expansion first: `${VAR}` must be
// set, `$$` escapes a literal dollar. A value of the form
// `secretref:<provider>:<ref>` is then handed to the named Provider. The
// built-in env provider reads references straight from the process
// environment.
package secret
