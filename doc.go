/*
wildwatch runs a pretrained YOLO object detection model over a webcam or an
uploaded video file and raises an alert to a Telegram chat when a hunter is
seen in the same frame as an animal.

The root package holds the process wide configuration file format, the
operator Settings edited through the browser control panel and the label
file loader shared by the model backends.

Subpackages:

	source       video capture from a webcam or the uploaded file
	detector     model presets, loader and inference backends
	preprocess   letterbox resizing to the model input size
	postprocess  YOLOv8 output decoding and NMS
	render       detection boxes and the alert banner
	alert        trigger condition, dispatcher and Telegram notifier
	stream       the inference loop feeding the two live panes
	web          the browser control panel

See cmd/wildwatch for the server binary.
*/
package wildwatch
