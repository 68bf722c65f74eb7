/*
Package stretch drives block-oriented time stretching engines over audio
streams.

Concept

A stretch run has three parties:

    Source - the origin of signal, e.g. wav file;
    Engine - the stateful transform which stretches the signal;
    Sink - the destination of stretched signal.

The engine is not a simple block processor. It asks for a variable number
of frames per step, wants to be primed with silence before the signal,
delays its output and keeps the processed frames in its own buffer until
they are retrieved. Run hides these details:

    engine is primed with its preferred start pad exactly once;
    input is read in blocks of the size the engine requires;
    the last block is marked as final, the engine then flushes;
    start delay is trimmed from the output head;
    engine is drained until it has no frames left.

Components

Engines and sinks are instantiated with allocator functions:

    EngineAllocatorFunc
    SinkAllocatorFunc

Allocators receive sample rate and number of channels of the source. Sinks
may implement Committer and Aborter interfaces. Single commits the sink
after successful run and aborts it otherwise, so no partial output is left.

Split mode

Split stretches a stereo source three times: as a whole and then left and
right channels with independent mono engines. Mono results are joined into
a dual-mono output. Mono engines are not guaranteed to produce the same
number of frames, the shorter channel is padded with silence.

Errors

Engine faults are reported with ErrEngineFault, short reads with
ErrShortRead. An engine which retrieves less frames than it reported as
available violates the contract and Run panics.
*/
package stretch
