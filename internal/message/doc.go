// Package message parses and serializes HDF5 object header messages.
//
// Object headers hold a sequence of typed messages describing an object:
//
//   - Dataspace (0x0001): the extent of a dataset. See [Dataspace].
//   - Link Info (0x0002) and Group Info (0x000A): required in new-style
//     groups. See [LinkInfo] and [GroupInfo].
//   - Datatype (0x0003): the element type. See [Datatype].
//   - Fill Value (0x0005): fill settings. See [FillValue].
//   - Link (0x0006): a named link stored in a group header. See [Link].
//   - Data Layout (0x0008): where the raw data lives. See [DataLayout].
//   - Filter Pipeline (0x000B): filters applied to chunks. See [FilterPipeline].
//   - Attribute (0x000C): a named value attached to an object. See [Attribute].
//   - Continuation (0x0010): points to more header data. See [Continuation].
//
// Anything else is returned as [Unknown]. Messages that volpack writes also
// implement [Serializable].
//
// Datatype support is limited to what volpack produces and can read back:
// fixed-point integers, IEEE floats, fixed-length strings and
// variable-length strings. Other classes parse to a [Datatype] whose raw
// properties are kept for inspection.
package message
