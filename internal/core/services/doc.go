// Package services contains the core pipeline logic: the chunk and
// postings builder, the checkpointed batch session and the publisher.
package services
