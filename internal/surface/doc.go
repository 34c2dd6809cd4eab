// Package surface implements the detached overlay surface: a container attached directly to the
// display server, one counter badge mounted inside it, and the synthetic lifecycle owner that lets
// the badge behave as if it were hosted by a normal window tree.
//
// Create runs a fixed protocol (allocate, build content, restore and resume the owner, publish the
// owner on the container, attach, mount). Destroy reverses it exactly once: detach, unmount (which
// joins the update task), release, then PAUSE/STOP/DESTROY.
package surface
